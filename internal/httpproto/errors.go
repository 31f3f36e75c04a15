package httpproto

import "errors"

// ErrIncomplete means the buffer does not yet contain enough bytes to
// finish parsing the thing being asked for — not a protocol error, the
// caller must wait for more input and retry.
var ErrIncomplete = errors.New("httpproto: incomplete")

// Kind identifies which protocol violation occurred, so the connection
// state machine can map it to the right status code without string
// matching.
type Kind int

const (
	KindInvalidRequestLine Kind = iota
	KindRequestLineTooLong
	KindHeadersTooLarge
	KindMultipleContentLength
	KindInvalidContentLength
	KindBodyTooLarge
	KindTransferEncodingWithoutChunked
	KindBothContentLengthAndChunked
	KindInvalidChunkedEncoding
	KindVersionNotSupported
)

// statusFor maps a Kind to the HTTP status code the connection should
// respond with.
var statusFor = map[Kind]int{
	KindInvalidRequestLine:             400,
	KindRequestLineTooLong:             414,
	KindHeadersTooLarge:                431,
	KindMultipleContentLength:          400,
	KindInvalidContentLength:           400,
	KindBodyTooLarge:                   413,
	KindTransferEncodingWithoutChunked: 400,
	KindBothContentLengthAndChunked:    400,
	KindInvalidChunkedEncoding:         400,
	KindVersionNotSupported:            505,
}

// ProtocolError is a request that cannot be satisfied as written; it
// always maps to a concrete HTTP status the connection must respond
// with instead of invoking the handler.
type ProtocolError struct {
	Kind Kind
	Msg  string
}

func (e *ProtocolError) Error() string { return e.Msg }

// Status returns the HTTP status code this error should produce.
func (e *ProtocolError) Status() int { return statusFor[e.Kind] }

func newProtoErr(k Kind, msg string) *ProtocolError {
	return &ProtocolError{Kind: k, Msg: msg}
}
