// Package evhttp is an embeddable, non-blocking HTTP/1.1 server. A host
// application constructs a Server with a Config and a Handler; the
// server accepts TCP connections, parses HTTP/1.1 requests, invokes the
// handler once per request, writes the response, and manages
// connection lifecycle (idle timeouts, error recovery, bounded
// resource use) — all on a single event-loop thread.
//
// TLS, HTTP/2, pipelining, keep-alive connection reuse, URI
// percent-decoding and routing are out of scope; see
// httpproto.PathFromURI for callers that want path normalization
// without a router attached.
package evhttp

import (
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/corewire/evhttp/internal/conn"
	"github.com/corewire/evhttp/internal/engine"
	"github.com/corewire/evhttp/internal/logging"
	"github.com/rs/zerolog"
)

const timeoutSweepInterval = 5 * time.Second

// Server owns the listener, the readiness poller, and the table of
// active connections. It is created once and serves until Stop is
// called or the process exits.
type Server struct {
	cfg     Config
	handler Handler

	listener *engine.Listener
	poller   *engine.ReadinessPoller
	conns    map[int]*conn.Connection

	log       zerolog.Logger
	logCloser io.Closer

	lastSweep time.Time
	stop      chan struct{}
}

// New constructs a Server. It creates the listening socket and the
// readiness poller immediately — a failure at either step is fatal and
// returned as *ErrCanNotCreateServer; nothing later is ever fatal to
// the caller.
func New(cfg Config, handler Handler) (*Server, error) {
	log, logCloser, err := logging.New(cfg.ExternalLogging, cfg.LogFilePath)
	if err != nil {
		return nil, &ErrCanNotCreateServer{Err: err}
	}

	// SIGPIPE masked process-wide so a write to a peer that has already
	// closed its end surfaces as EPIPE on the failing send(2) call
	// instead of killing the process.
	signal.Ignore(syscall.SIGPIPE)

	listener, err := engine.NewListener(cfg.Port, cfg.MaxPendingConnections)
	if err != nil {
		logCloser.Close()
		return nil, &ErrCanNotCreateServer{Err: err}
	}

	poller, err := engine.NewReadinessPoller()
	if err != nil {
		listener.Close()
		logCloser.Close()
		return nil, &ErrCanNotCreateServer{Err: err}
	}

	return &Server{
		cfg:       cfg,
		handler:   handler,
		listener:  listener,
		poller:    poller,
		conns:     make(map[int]*conn.Connection),
		log:       log,
		logCloser: logCloser,
		lastSweep: time.Now(),
		stop:      make(chan struct{}),
	}, nil
}

// Start runs the event loop. It blocks until Stop is called.
func (s *Server) Start() error {
	if err := s.poller.Register(s.listener.Fd()); err != nil {
		return err
	}
	s.log.Info().Int("port", s.cfg.Port).Msg("server started")

	for {
		select {
		case <-s.stop:
			return s.shutdown()
		default:
		}

		ready, err := s.poller.Wait(1000)
		if err != nil {
			s.log.Error().Err(err).Msg("poll failed")
			return err
		}

		for _, fd := range ready {
			if fd == s.listener.Fd() {
				s.acceptNew()
				s.poller.Clear(fd)
			}
		}

		for _, fd := range ready {
			if fd == s.listener.Fd() {
				continue
			}
			c, ok := s.conns[fd]
			if !ok {
				continue
			}
			// Source idiosyncrasy: the poller's "readable" bit means the
			// peer sent bytes we can read, and "writable" means the
			// kernel will accept bytes we send — despite some reference
			// implementations naming these the other way around, the
			// effective meaning used here is the straightforward one.
			if s.poller.IsReadable(fd) {
				c.SetPeerReadable()
			}
			if s.poller.IsWritable(fd) {
				c.SetPeerWritable()
			}
			s.poller.Clear(fd)

			c.Progress(s.handler)
			c.ClearPeerFlags()

			switch {
			case c.State().Terminal():
				s.evict(fd, "request completed")
			case c.State() == conn.StateSendingResponse || c.State() == conn.StateRequestReadingDone:
				s.poller.EnableWrite(fd)
			}
		}

		s.sweepIdle()
	}
}

// Stop signals the loop to exit after its current iteration.
func (s *Server) Stop() {
	close(s.stop)
}

func (s *Server) shutdown() error {
	for fd := range s.conns {
		s.evict(fd, "server stopping")
	}
	s.poller.Unregister(s.listener.Fd())
	s.listener.Close()
	s.poller.Close()
	s.log.Info().Msg("server stopped")
	return s.logCloser.Close()
}

func (s *Server) acceptNew() {
	sockets, err := s.listener.AcceptAll()
	if err != nil {
		s.log.Error().Err(err).Msg("accept failed")
		return
	}
	for _, sock := range sockets {
		if err := s.poller.Register(sock.Fd()); err != nil {
			s.log.Error().Err(err).Msg("failed to register accepted connection")
			sock.Close()
			continue
		}
		s.conns[sock.Fd()] = conn.New(sock, s.log)
		s.log.Info().Str("peer_ip", sock.PeerIP()).Int("peer_port", sock.PeerPort()).
			Int("active", len(s.conns)).Msg("connection accepted")
		if s.cfg.MaxConcurrentConnections > 0 && len(s.conns) > s.cfg.MaxConcurrentConnections {
			s.log.Warn().Int("active", len(s.conns)).Int("limit", s.cfg.MaxConcurrentConnections).
				Msg("active connections exceed configured soft limit")
		}
	}
}

func (s *Server) evict(fd int, reason string) {
	c, ok := s.conns[fd]
	if !ok {
		return
	}
	s.poller.Unregister(fd)
	c.Socket.Close()
	delete(s.conns, fd)
	s.log.Info().Int("fd", fd).Str("reason", reason).Msg("connection closed")
}

func (s *Server) sweepIdle() {
	timeout := s.cfg.inactiveTimeout()
	if timeout == 0 {
		return
	}
	now := time.Now()
	if now.Sub(s.lastSweep) < timeoutSweepInterval {
		return
	}
	s.lastSweep = now

	for fd, c := range s.conns {
		if c.IdleFor(now) > timeout {
			s.log.Warn().Int("fd", fd).Dur("idle", c.IdleFor(now)).Msg("connection idle timeout")
			s.evict(fd, "idle timeout")
		}
	}
}
