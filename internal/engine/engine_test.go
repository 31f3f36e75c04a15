package engine

import (
	"net"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestByteSocketSendRecv(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])
	if err := unix.SetNonblock(fds[0], true); err != nil {
		t.Fatalf("setnonblock: %v", err)
	}

	sock := NewByteSocket(fds[0], "127.0.0.1", 0)

	if _, err := unix.Write(fds[1], []byte("hello there")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := sock.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(got) != "hello there" {
		t.Fatalf("Recv = %q", got)
	}

	n, err := sock.Send([]byte("response"), 0)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n != len("response") {
		t.Fatalf("Send = %d, want %d", n, len("response"))
	}
	buf := make([]byte, 64)
	rn, err := unix.Read(fds[1], buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf[:rn]) != "response" {
		t.Fatalf("read = %q", buf[:rn])
	}
}

func TestByteSocketRecvConnectionClosed(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	if err := unix.SetNonblock(fds[0], true); err != nil {
		t.Fatalf("setnonblock: %v", err)
	}
	unix.Close(fds[1])

	sock := NewByteSocket(fds[0], "127.0.0.1", 0)
	_, err = sock.Recv()
	if err != ErrConnectionClosed {
		t.Fatalf("Recv err = %v, want ErrConnectionClosed", err)
	}
}

func TestListenerAcceptAll(t *testing.T) {
	ln, err := NewListener(0, 0)
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}
	defer ln.Close()

	sa, err := unix.Getsockname(ln.Fd())
	if err != nil {
		t.Fatalf("getsockname: %v", err)
	}
	addr, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		t.Fatalf("unexpected sockaddr type %T", sa)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", itoa(addr.Port)), time.Second)
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(50 * time.Millisecond)
	}()
	<-done

	var sockets []*ByteSocket
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && len(sockets) == 0 {
		sockets, err = ln.AcceptAll()
		if err != nil {
			t.Fatalf("AcceptAll: %v", err)
		}
		if len(sockets) == 0 {
			time.Sleep(5 * time.Millisecond)
		}
	}
	if len(sockets) != 1 {
		t.Fatalf("accepted %d sockets, want 1", len(sockets))
	}
	sockets[0].Close()
}

func TestReadinessPollerRegisterAndWait(t *testing.T) {
	poller, err := NewReadinessPoller()
	if err != nil {
		t.Fatalf("NewReadinessPoller: %v", err)
	}
	defer poller.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])
	if err := unix.SetNonblock(fds[0], true); err != nil {
		t.Fatalf("setnonblock: %v", err)
	}

	if err := poller.Register(fds[0]); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !poller.IsWritable(fds[0]) {
		t.Fatalf("Register should optimistically seed the writable bit")
	}

	if _, err := unix.Write(fds[1], []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}
	ready, err := poller.Wait(1000)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	found := false
	for _, fd := range ready {
		if fd == fds[0] {
			found = true
		}
	}
	if !found {
		t.Fatalf("Wait did not report fds[0] ready: %v", ready)
	}
	if !poller.IsReadable(fds[0]) {
		t.Fatalf("expected readable bit set after write from peer")
	}

	poller.Clear(fds[0])
	if poller.IsReadable(fds[0]) {
		t.Fatalf("Clear should reset the readable bit")
	}

	if err := poller.Unregister(fds[0]); err != nil {
		t.Fatalf("Unregister: %v", err)
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
