// Package engine provides the non-blocking socket, listener and
// readiness-poller primitives the connection state machine is built on.
// Nothing here understands HTTP; it only moves bytes and reports fd
// readiness.
package engine

import (
	"errors"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// ErrConnectionClosed is returned by Recv when the peer closed its end
// of the connection (a zero-byte read).
var ErrConnectionClosed = errors.New("engine: connection closed by peer")

// ErrIOFailed wraps a hard I/O error distinct from EAGAIN/EWOULDBLOCK.
type ErrIOFailed struct {
	Op  string
	Err error
}

func (e *ErrIOFailed) Error() string { return fmt.Sprintf("engine: %s: %v", e.Op, e.Err) }
func (e *ErrIOFailed) Unwrap() error { return e.Err }

// ByteSocket is a non-blocking TCP stream endpoint. It never blocks the
// caller: Recv drains whatever the kernel currently has buffered and
// Send writes whatever the kernel is currently willing to accept.
type ByteSocket struct {
	fd       int
	peerIP   string
	peerPort int
}

func newByteSocket(fd int, peerIP string, peerPort int) *ByteSocket {
	return &ByteSocket{fd: fd, peerIP: peerIP, peerPort: peerPort}
}

// NewByteSocket wraps an already-connected, already-nonblocking fd. It
// exists for callers that set up the fd themselves — a unix.Socketpair
// end in tests, or a descriptor handed down by a supervisor process —
// rather than through Listener.AcceptAll.
func NewByteSocket(fd int, peerIP string, peerPort int) *ByteSocket {
	return newByteSocket(fd, peerIP, peerPort)
}

// Fd returns the underlying file descriptor, for registration with a
// ReadinessPoller.
func (s *ByteSocket) Fd() int { return s.fd }

// PeerIP returns the remote address, for logging only.
func (s *ByteSocket) PeerIP() string { return s.peerIP }

// PeerPort returns the remote port, for logging only.
func (s *ByteSocket) PeerPort() int { return s.peerPort }

// Recv drains the socket's kernel receive buffer until EAGAIN, returning
// every byte accumulated across however many recv(2) calls that took.
func (s *ByteSocket) Recv() ([]byte, error) {
	var out []byte
	buf := make([]byte, singleReadSize)
	for {
		n, err := unix.Read(s.fd, buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if n == 0 {
			if len(out) > 0 {
				return out, nil
			}
			return nil, ErrConnectionClosed
		}
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return out, nil
			}
			if err == unix.EINTR {
				continue
			}
			return out, &ErrIOFailed{Op: "recv", Err: err}
		}
	}
}

// Send writes buf[startOffset:] until the kernel refuses more, returning
// the number of bytes accepted. EAGAIN is not an error: it simply means
// fewer bytes (possibly zero) were written this call.
func (s *ByteSocket) Send(buf []byte, startOffset int) (int, error) {
	data := buf[startOffset:]
	total := 0
	for total < len(data) {
		n, err := unix.Write(s.fd, data[total:])
		if n > 0 {
			total += n
		}
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return total, nil
			}
			if err == unix.EINTR {
				continue
			}
			return total, &ErrIOFailed{Op: "send", Err: err}
		}
		if n == 0 {
			return total, nil
		}
	}
	return total, nil
}

// Close releases the underlying file descriptor. Safe to call once.
func (s *ByteSocket) Close() error {
	return unix.Close(s.fd)
}

func setNonblocking(fd int) error {
	return unix.SetNonblock(fd, true)
}

func sockaddrToIPPort(sa unix.Sockaddr) (string, int) {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		ip := net.IPv4(a.Addr[0], a.Addr[1], a.Addr[2], a.Addr[3])
		return ip.String(), a.Port
	case *unix.SockaddrInet6:
		return net.IP(a.Addr[:]).String(), a.Port
	default:
		return "", 0
	}
}
