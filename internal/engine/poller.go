package engine

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// readiness bits, OR-ed into a per-fd cache and sticky until Clear.
const (
	bitReadable = 1 << iota
	bitWritable
)

// ReadinessPoller is an edge-triggered readiness multiplexer over a set
// of file descriptors, modeled on epoll. Register starts a descriptor
// out as WRITABLE (optimistic: lets the first response attempt go
// through without waiting on a writable edge the kernel may never
// bother to report separately for an already-writable socket).
type ReadinessPoller struct {
	epollFd int
	status  map[int]int
}

// NewReadinessPoller creates a new epoll instance.
func NewReadinessPoller() (*ReadinessPoller, error) {
	fd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, fmt.Errorf("engine: epoll_create1: %w", err)
	}
	return &ReadinessPoller{epollFd: fd, status: make(map[int]int)}, nil
}

// Close releases the epoll instance.
func (p *ReadinessPoller) Close() error { return unix.Close(p.epollFd) }

// Register adds fd with read-interest, edge-triggered.
func (p *ReadinessPoller) Register(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLET, Fd: int32(fd)}
	if err := unix.EpollCtl(p.epollFd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("engine: epoll_ctl add fd=%d: %w", fd, err)
	}
	p.status[fd] = bitWritable
	return nil
}

// EnableWrite adds write-interest to an already-registered fd.
func (p *ReadinessPoller) EnableWrite(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLOUT | unix.EPOLLET, Fd: int32(fd)}
	if err := unix.EpollCtl(p.epollFd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("engine: epoll_ctl mod fd=%d: %w", fd, err)
	}
	return nil
}

// Unregister removes fd from the poller and drops its cached status.
func (p *ReadinessPoller) Unregister(fd int) error {
	if err := unix.EpollCtl(p.epollFd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("engine: epoll_ctl del fd=%d: %w", fd, err)
	}
	delete(p.status, fd)
	return nil
}

// Wait blocks until at least one fd is ready or timeoutMillis elapses.
// -1 blocks indefinitely, 0 polls without blocking. Readiness bits for
// each returned fd are OR-ed into the cache, sticky until Clear.
func (p *ReadinessPoller) Wait(timeoutMillis int) ([]int, error) {
	events := make([]unix.EpollEvent, 128)
	for {
		n, err := unix.EpollWait(p.epollFd, events, timeoutMillis)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return nil, fmt.Errorf("engine: epoll_wait: %w", err)
		}

		fds := make([]int, 0, n)
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if events[i].Events&unix.EPOLLIN != 0 {
				p.status[fd] |= bitReadable
			}
			if events[i].Events&unix.EPOLLOUT != 0 {
				p.status[fd] |= bitWritable
			}
			fds = append(fds, fd)
		}
		return fds, nil
	}
}

// IsReadable reports the cached readable bit for fd.
func (p *ReadinessPoller) IsReadable(fd int) bool { return p.status[fd]&bitReadable != 0 }

// IsWritable reports the cached writable bit for fd.
func (p *ReadinessPoller) IsWritable(fd int) bool { return p.status[fd]&bitWritable != 0 }

// Clear zeroes the cached bits for fd. Must be called after the caller
// has attempted I/O on fd following a readiness report — edge-triggered
// discipline requires the bits stay sticky across poll calls within one
// loop iteration, but must not leak into the next.
func (p *ReadinessPoller) Clear(fd int) {
	p.status[fd] = 0
}
