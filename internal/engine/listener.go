package engine

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Listener is a non-blocking TCP listening socket.
type Listener struct {
	fd int
}

// NewListener creates, binds and starts listening on the given port on
// all interfaces. backlog <= 0 falls back to defaultBacklog.
func NewListener(port int, backlog int) (*Listener, error) {
	if backlog <= 0 {
		backlog = defaultBacklog
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, &ErrIOFailed{Op: "socket", Err: err}
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, &ErrIOFailed{Op: "setsockopt(SO_REUSEADDR)", Err: err}
	}

	if err := setNonblocking(fd); err != nil {
		unix.Close(fd)
		return nil, &ErrIOFailed{Op: "setnonblock", Err: err}
	}

	addr := &unix.SockaddrInet4{Port: port}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, &ErrIOFailed{Op: "bind", Err: err}
	}

	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, &ErrIOFailed{Op: "listen", Err: err}
	}

	return &Listener{fd: fd}, nil
}

// Fd returns the listening socket's file descriptor.
func (l *Listener) Fd() int { return l.fd }

// Close stops listening.
func (l *Listener) Close() error { return unix.Close(l.fd) }

// AcceptAll repeatedly accepts pending connections until EAGAIN,
// returning every non-blocking ByteSocket accepted in this call. If one
// accept fails with a hard error, the call fails and no sockets from
// this call are returned — callers must close none, since none escape.
func (l *Listener) AcceptAll() ([]*ByteSocket, error) {
	var sockets []*ByteSocket
	for {
		fd, sa, err := unix.Accept(l.fd)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return sockets, nil
			}
			if err == unix.EINTR {
				continue
			}
			for _, s := range sockets {
				s.Close()
			}
			return nil, fmt.Errorf("engine: accept: %w", err)
		}

		if err := setNonblocking(fd); err != nil {
			unix.Close(fd)
			for _, s := range sockets {
				s.Close()
			}
			return nil, fmt.Errorf("engine: setnonblock on accepted socket: %w", err)
		}

		ip, port := sockaddrToIPPort(sa)
		sockets = append(sockets, newByteSocket(fd, ip, port))
	}
}
