package httpproto

import (
	"strings"
	"testing"
)

func TestSerializeResponse(t *testing.T) {
	buf := SerializeResponse("HTTP/1.1", 200, "OK", map[string]string{
		"content-length": "2",
		"connection":     "close",
	}, []byte("Hi"))

	got := string(buf)
	if !strings.HasPrefix(got, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("bad status line: %q", got)
	}
	if !strings.Contains(got, "content-length: 2\r\n") {
		t.Errorf("missing content-length header: %q", got)
	}
	if !strings.Contains(got, "connection: close\r\n") {
		t.Errorf("missing connection header: %q", got)
	}
	if !strings.HasSuffix(got, "\r\n\r\nHi") {
		t.Errorf("bad terminator/body: %q", got)
	}
}

func TestSerializeResponseIsStableUnderReserialization(t *testing.T) {
	headers := map[string]string{"a": "1", "b": "2"}
	first := SerializeResponse("HTTP/1.1", 200, "OK", headers, []byte("x"))
	second := SerializeResponse("HTTP/1.1", 200, "OK", headers, []byte("x"))
	if string(first) != string(second) {
		t.Errorf("serialization is not deterministic:\n%q\n%q", first, second)
	}
}
