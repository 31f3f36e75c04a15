// Package conn implements the per-connection request/response state
// machine: it owns a growing read buffer, drives incremental HTTP/1.1
// parsing as bytes arrive, invokes the host handler once a request is
// fully read, and drains the serialized response back out.
package conn

import (
	"errors"
	"time"

	"github.com/corewire/evhttp/internal/engine"
	"github.com/corewire/evhttp/internal/httpproto"
	"github.com/rs/zerolog"
)

// Handler is the host-supplied request callback, invoked synchronously
// on the event-loop thread once per request.
type Handler func(*Request, *Response)

// Connection is the per-socket state machine driving incremental
// HTTP/1.1 parsing, handler dispatch, and response write-back.
type Connection struct {
	Socket *engine.ByteSocket

	buf    []byte
	cursor int // parse boundary: bytes before cursor have been consumed

	headerSectionStart int // cursor position where READING_HEADERS began
	reqLineEnd         int // index of the CRLF ending the request line
	headerBlockEnd     int // index of the "\r\n\r\n" that ends the header section

	req  Request
	resp *Response

	framing httpproto.BodyFraming

	sendBuf    []byte
	sendCursor int

	state State

	peerReadable bool
	peerWritable bool

	lastActivity time.Time

	log zerolog.Logger
}

// New creates a connection in CONNECTION_ESTABLISHED state.
func New(sock *engine.ByteSocket, log zerolog.Logger) *Connection {
	return &Connection{
		Socket:       sock,
		resp:         NewResponse(),
		state:        StateConnectionEstablished,
		lastActivity: time.Now(),
		log: log.With().
			Str("peer_ip", sock.PeerIP()).
			Int("peer_port", sock.PeerPort()).
			Logger(),
	}
}

// State returns the connection's current state.
func (c *Connection) State() State { return c.state }

// SetPeerReadable marks the socket as ready for a read attempt.
func (c *Connection) SetPeerReadable() { c.peerReadable = true }

// SetPeerWritable marks the socket as ready for a write attempt.
func (c *Connection) SetPeerWritable() { c.peerWritable = true }

// ClearPeerFlags resets both readiness bits; called once Progress has
// had a chance to act on them.
func (c *Connection) ClearPeerFlags() {
	c.peerReadable = false
	c.peerWritable = false
}

// IdleFor reports how long it has been since the last byte of activity
// (read or write) on this connection.
func (c *Connection) IdleFor(now time.Time) time.Duration {
	return now.Sub(c.lastActivity)
}

func (c *Connection) touch() { c.lastActivity = time.Now() }

// Progress is idempotent and non-blocking: it advances the state
// machine as far as the currently available bytes and peer readiness
// allow, then returns. It never panics to the caller — a panic from
// handler is recovered and turned into a 500 response.
func (c *Connection) Progress(handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Msg("handler panicked")
			c.prepareStatusResponse(500)
			c.state = StateServerError
			c.attemptSend()
		}
	}()

	if c.state <= StateReadingBody && c.peerReadable {
		c.readAndParse()
	}

	if c.state == StateRequestReadingDone && !c.resp.Ready() {
		c.invokeHandler(handler)
	}

	if (c.state == StateRequestReadingDone || c.state == StateSendingResponse || c.state == StateServerError) && c.peerWritable {
		c.attemptSend()
	}
}

func (c *Connection) invokeHandler(handler Handler) {
	c.req.Headers = nonNilHeaders(c.req.Headers)
	if handler != nil {
		handler(&c.req, c.resp)
	}
	if !c.resp.Ready() {
		c.resp.StatusCode = 200
	}
	if c.resp.Reason == "" {
		c.resp.Reason = httpproto.StatusText(c.resp.StatusCode)
	}
	deleteHeaderCI(c.resp.Headers, "Connection")
	deleteHeaderCI(c.resp.Headers, "Content-Length")
	c.resp.SetHeader("Connection", "close")
	c.resp.Headers["Content-Length"] = itoa(len(c.resp.Body))
	ev := c.log.Info()
	if c.resp.StatusCode == 404 {
		ev = c.log.Warn()
	}
	ev.Int("status", c.resp.StatusCode).Msg("handler completed")
}

// deleteHeaderCI removes any key in headers that matches name
// case-insensitively. Response.Headers is stored exactly as the
// handler set it (unlike Request.Headers, which the parser always
// lowercases), so a handler-set "content-length" or "connection" in
// some other case would otherwise survive alongside the canonical key
// the server forces, producing two headers with the same meaning on
// the wire.
func deleteHeaderCI(headers map[string]string, name string) {
	want := lowerASCII(name)
	for k := range headers {
		if lowerASCII(k) == want {
			delete(headers, k)
		}
	}
}

func nonNilHeaders(h map[string]string) map[string]string {
	if h == nil {
		return make(map[string]string)
	}
	return h
}

// readAndParse drains the socket, then drives the parser forward as
// far as the newly available bytes allow.
func (c *Connection) readAndParse() {
	data, err := c.Socket.Recv()
	if len(data) > 0 {
		c.buf = append(c.buf, data...)
		c.touch()
	}
	if err != nil {
		c.log.Info().Err(err).Msg("connection closed")
		c.state = StateClientError
		return
	}

	if c.state == StateConnectionEstablished {
		c.state = StateReadingRequestLine
	}

	if c.state == StateReadingRequestLine {
		c.readRequestLine()
	}
	if c.state == StateRequestLineDone {
		c.finishRequestLine()
	}
	if c.state == StateReadingHeaders {
		c.readHeaders()
	}
	if c.state == StateHeadersDone {
		c.finishHeaders()
	}
	if c.state == StateReadingBody {
		c.readBody()
	}
}

func (c *Connection) readRequestLine() {
	idx := httpproto.IndexCRLF(c.buf, c.cursor)
	if idx == -1 {
		// The last buffered byte may be the '\r' of a CRLF still in flight.
		if len(c.buf)-c.cursor > httpproto.MaxRequestLine+1 {
			c.log.Warn().Msg("request line too long")
			c.prepareStatusResponse(414)
			c.state = StateRequestReadingDone
		}
		return
	}
	if idx-c.cursor > httpproto.MaxRequestLine {
		c.log.Warn().Msg("request line too long")
		c.prepareStatusResponse(414)
		c.state = StateRequestReadingDone
		return
	}
	c.reqLineEnd = idx
	c.state = StateRequestLineDone
}

func (c *Connection) finishRequestLine() {
	line := c.buf[c.cursor:c.reqLineEnd]
	rl, err := httpproto.ParseRequestLine(line)
	if err != nil {
		c.log.Warn().Err(err).Msg("invalid request line")
		c.prepareStatusResponse(400)
		c.state = StateRequestReadingDone
		return
	}
	c.cursor = c.reqLineEnd + 2

	c.req.Method = rl.Method
	c.req.URI = rl.URI
	c.req.Version = rl.Version

	if rl.Version != httpproto.HTTP1_1 {
		c.log.Warn().Str("version", rl.Version).Msg("unsupported HTTP version")
		c.prepareStatusResponse(505)
		c.state = StateRequestReadingDone
		return
	}

	c.headerSectionStart = c.cursor
	c.state = StateReadingHeaders
}

func (c *Connection) readHeaders() {
	idx := indexDoubleCRLF(c.buf, c.cursor)
	if idx == -1 {
		// Up to three bytes of a "\r\n\r\n" may already be buffered.
		if len(c.buf)-c.headerSectionStart > httpproto.MaxHeaderSize+3 {
			c.log.Warn().Msg("headers too large")
			c.prepareStatusResponse(431)
			c.state = StateRequestReadingDone
		}
		return
	}
	if idx-c.headerSectionStart > httpproto.MaxHeaderSize {
		c.log.Warn().Msg("headers too large")
		c.prepareStatusResponse(431)
		c.state = StateRequestReadingDone
		return
	}
	c.headerBlockEnd = idx
	c.state = StateHeadersDone
}

func (c *Connection) finishHeaders() {
	block := c.buf[c.cursor : c.headerBlockEnd+4]
	headers, err := httpproto.ParseHeaders(block)
	if err != nil {
		c.protoErrOrPanic(err)
		return
	}
	c.req.Headers = headers
	c.cursor = c.headerBlockEnd + 4

	framing, err := httpproto.DetermineBodyFraming(headers)
	if err != nil {
		c.protoErrOrPanic(err)
		return
	}
	c.framing = framing

	if framing.Mode == httpproto.BodyModeNone {
		c.state = StateRequestReadingDone
		return
	}
	c.state = StateReadingBody
}

func (c *Connection) readBody() {
	switch c.framing.Mode {
	case httpproto.BodyModeContentLength:
		body, err := httpproto.ExtractFixedBody(c.buf[c.cursor:], c.framing.ContentLength)
		if err != nil {
			if errors.Is(err, httpproto.ErrIncomplete) {
				return
			}
			c.protoErrOrPanic(err)
			return
		}
		c.req.Body = body
		c.cursor += c.framing.ContentLength
		c.state = StateRequestReadingDone

	case httpproto.BodyModeChunked:
		body, consumed, err := httpproto.DecodeChunkedBody(c.buf[c.cursor:])
		if err != nil {
			if errors.Is(err, httpproto.ErrIncomplete) {
				return
			}
			c.protoErrOrPanic(err)
			return
		}
		c.req.Body = body
		c.cursor += consumed
		c.state = StateRequestReadingDone
	}
}

func (c *Connection) protoErrOrPanic(err error) {
	var pe *httpproto.ProtocolError
	if errors.As(err, &pe) {
		c.log.Warn().Err(err).Msg("protocol error")
		c.prepareStatusResponse(pe.Status())
		c.state = StateRequestReadingDone
		return
	}
	panic(err)
}

// prepareStatusResponse fills the in-progress response with a status
// code, the core's own body-less error body, and a default reason.
// It short-circuits the handler: once a nonzero status is set, Progress
// will not call handler on this connection.
func (c *Connection) prepareStatusResponse(code int) {
	c.resp.StatusCode = code
	c.resp.Reason = httpproto.StatusText(code)
	c.resp.Headers = map[string]string{
		"Connection":     "close",
		"Content-Length": "0",
	}
	c.resp.Body = nil
}

// attemptSend serializes (on first entry) and writes as much of the
// response as the kernel currently accepts.
func (c *Connection) attemptSend() {
	if c.state == StateRequestReadingDone || c.state == StateServerError {
		c.sendBuf = httpproto.SerializeResponse("HTTP/1.1", c.resp.StatusCode, c.resp.Reason, c.resp.Headers, c.resp.Body)
		c.sendCursor = 0
		c.state = StateSendingResponse
	}

	n, err := c.Socket.Send(c.sendBuf, c.sendCursor)
	if n > 0 {
		c.sendCursor += n
		c.touch()
	}
	if err != nil {
		c.log.Info().Err(err).Msg("failed to send response")
		c.state = StateClientError
		return
	}
	if c.sendCursor == len(c.sendBuf) {
		c.log.Info().Int("status", c.resp.StatusCode).Msg("response sent")
		c.state = StateCompleted
	}
}

// indexDoubleCRLF returns the absolute index where "\r\n\r\n" begins, at
// or after from, or -1 if the buffer doesn't contain it yet.
func indexDoubleCRLF(buf []byte, from int) int {
	for {
		idx := httpproto.IndexCRLF(buf, from)
		if idx == -1 || idx+4 > len(buf) {
			return -1
		}
		if buf[idx+2] == '\r' && buf[idx+3] == '\n' {
			return idx
		}
		from = idx + 2
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte(n%10) + '0'
		n /= 10
	}
	return string(buf[i:])
}
