package httpproto

// Protocol limits enforced by the parser and connection state machine.
const (
	MaxRequestLine = 8192             // bytes, request-line excluding CRLF
	MaxHeaderSize  = 8192             // bytes, cumulative header-block size
	MaxBodySize    = 10 * 1024 * 1024 // bytes, 10 MiB
)

// HTTP1_1 is the only version this parser accepts.
const HTTP1_1 = "HTTP/1.1"
