package httpproto

import "bytes"

var crlf = []byte("\r\n")

// IndexCRLF returns the index (relative to buf) of the next CRLF at or
// after from, or -1 if none is present yet.
func IndexCRLF(buf []byte, from int) int {
	if from >= len(buf) {
		return -1
	}
	idx := bytes.Index(buf[from:], crlf)
	if idx == -1 {
		return -1
	}
	return from + idx
}
