package httpproto

import "strings"

// BodyMode identifies how a request's body is framed.
type BodyMode int

const (
	BodyModeNone BodyMode = iota
	BodyModeContentLength
	BodyModeChunked
)

// BodyFraming is the outcome of arbitrating between Content-Length and
// Transfer-Encoding for one request's headers.
type BodyFraming struct {
	Mode          BodyMode
	ContentLength int // only meaningful when Mode == BodyModeContentLength
}

const headerTransferEncoding = "transfer-encoding"

// DetermineBodyFraming runs the Content-Length vs. chunked arbitration
// over a fully-parsed header set. It never looks at the buffer —
// ParseHeaders has already rejected duplicate Content-Length headers,
// so only the single surviving value (if any) is considered here.
func DetermineBodyFraming(headers map[string]string) (BodyFraming, error) {
	clVal, hasCL := headers[headerContentLength]
	teVal, hasTE := headers[headerTransferEncoding]

	isChunked := false
	if hasTE {
		tokens := strings.Split(teVal, ",")
		last := strings.TrimSpace(tokens[len(tokens)-1])
		if last != "chunked" {
			return BodyFraming{}, newProtoErr(KindTransferEncodingWithoutChunked,
				"transfer-encoding present without a final chunked coding")
		}
		isChunked = true
	}

	if hasCL && isChunked {
		return BodyFraming{}, newProtoErr(KindBothContentLengthAndChunked,
			"both content-length and transfer-encoding: chunked present")
	}

	if hasCL {
		n, err := parseContentLength(clVal)
		if err != nil {
			return BodyFraming{}, err
		}
		if n > MaxBodySize {
			return BodyFraming{}, newProtoErr(KindBodyTooLarge, "content-length exceeds maximum body size")
		}
		return BodyFraming{Mode: BodyModeContentLength, ContentLength: n}, nil
	}

	if isChunked {
		return BodyFraming{Mode: BodyModeChunked}, nil
	}

	return BodyFraming{Mode: BodyModeNone}, nil
}

func parseContentLength(s string) (int, error) {
	if s == "" {
		return 0, newProtoErr(KindInvalidContentLength, "empty content-length value")
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, newProtoErr(KindInvalidContentLength, "content-length is not a non-negative decimal integer")
		}
		n = n*10 + int(c-'0')
		if n > MaxBodySize*2 {
			// Stop runaway growth on pathological input; still > MaxBodySize
			// so the caller's bound check below rejects it either way.
			break
		}
	}
	return n, nil
}

// ExtractFixedBody returns buf[:need] once the buffer contains at least
// need bytes; otherwise ErrIncomplete.
func ExtractFixedBody(buf []byte, need int) ([]byte, error) {
	if len(buf) < need {
		return nil, ErrIncomplete
	}
	return buf[:need], nil
}

// DecodeChunkedBody walks buf from the start, decoding
// "<hex-size>\r\n<bytes>\r\n" chunks until the terminating zero-size
// chunk. It returns the fully decoded body and the number of bytes of
// buf consumed (including the terminating chunk and its CRLF). If the
// buffer doesn't yet contain a complete chunk stream, it returns
// ErrIncomplete and the caller must wait for more bytes and retry from
// the same starting point — no state is kept between calls.
//
// Chunk extensions (";ext=val" after the size) are tolerated and
// ignored.
func DecodeChunkedBody(buf []byte) ([]byte, int, error) {
	var body []byte
	pos := 0
	for {
		lineEnd := IndexCRLF(buf, pos)
		if lineEnd == -1 {
			return nil, 0, ErrIncomplete
		}

		sizeField := buf[pos:lineEnd]
		if semi := indexByte(sizeField, ';'); semi != -1 {
			sizeField = sizeField[:semi]
		}
		size, err := parseHexSize(sizeField)
		if err != nil {
			return nil, 0, err
		}

		chunkStart := lineEnd + 2
		chunkEnd := chunkStart + size
		if len(buf) < chunkEnd+2 {
			return nil, 0, ErrIncomplete
		}
		if buf[chunkEnd] != '\r' || buf[chunkEnd+1] != '\n' {
			return nil, 0, newProtoErr(KindInvalidChunkedEncoding, "chunk not terminated by CRLF")
		}

		if size == 0 {
			return body, chunkEnd + 2, nil
		}

		body = append(body, buf[chunkStart:chunkEnd]...)
		if len(body) > MaxBodySize {
			return nil, 0, newProtoErr(KindBodyTooLarge, "chunked body exceeds maximum body size")
		}
		pos = chunkEnd + 2
	}
}

func parseHexSize(field []byte) (int, error) {
	s := strings.TrimSpace(string(field))
	if s == "" {
		return 0, newProtoErr(KindInvalidChunkedEncoding, "empty chunk size")
	}
	n := 0
	for _, c := range s {
		var d int
		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case c >= 'a' && c <= 'f':
			d = int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = int(c-'A') + 10
		default:
			return 0, newProtoErr(KindInvalidChunkedEncoding, "invalid hex chunk size")
		}
		n = n*16 + d
		if n > MaxBodySize*2 {
			return 0, newProtoErr(KindBodyTooLarge, "chunk size exceeds maximum body size")
		}
	}
	return n, nil
}
