package httpproto

import (
	"errors"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	block := "Host: x\r\nContent-Type: text/plain\r\nX-Empty:\r\n\r\n"
	headers, err := ParseHeaders([]byte(block))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]string{
		"host":         "x",
		"content-type": "text/plain",
		"x-empty":      "",
	}
	for k, v := range want {
		if headers[k] != v {
			t.Errorf("headers[%q] = %q, want %q", k, headers[k], v)
		}
	}
}

func TestParseHeadersNoColonIsSkipped(t *testing.T) {
	block := "not-a-header-line\r\nHost: x\r\n\r\n"
	headers, err := ParseHeaders([]byte(block))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(headers) != 1 || headers["host"] != "x" {
		t.Errorf("got %+v", headers)
	}
}

func TestParseHeadersDuplicateContentLength(t *testing.T) {
	block := "Content-Length: 5\r\nContent-Length: 5\r\n\r\n"
	_, err := ParseHeaders([]byte(block))
	var pe *ProtocolError
	if !errors.As(err, &pe) || pe.Kind != KindMultipleContentLength {
		t.Fatalf("got err=%v, want KindMultipleContentLength", err)
	}
}

func TestParseHeadersTrailingWhitespaceNotTrimmed(t *testing.T) {
	block := "X-Foo: bar  \r\n\r\n"
	headers, err := ParseHeaders([]byte(block))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if headers["x-foo"] != "bar  " {
		t.Errorf("got %q, want trailing whitespace preserved", headers["x-foo"])
	}
}

func TestParseHeadersIncomplete(t *testing.T) {
	block := "Host: x\r\nContent-Type: text/plain"
	_, err := ParseHeaders([]byte(block))
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("got %v, want ErrIncomplete", err)
	}
}
