package httpproto

import "strings"

const headerContentLength = "content-length"

// ParseHeaders reads header lines out of block until it hits an empty
// line (a CRLF immediately following the previous line's CRLF). Each
// line is split at the first ':'; a line without one is not a
// recognized header and is skipped. Keys are lowercased. Trailing
// whitespace on values is intentionally not trimmed — only leading
// space/tab after the colon is stripped. Last value wins on duplicate
// keys, except Content-Length, where any second occurrence is a
// protocol error regardless of whether the values agree.
func ParseHeaders(block []byte) (map[string]string, error) {
	headers := make(map[string]string)
	pos := 0
	for pos < len(block) {
		lineEnd := IndexCRLF(block, pos)
		if lineEnd == -1 {
			return nil, ErrIncomplete
		}
		if lineEnd == pos {
			break // blank line: end of header section
		}

		line := block[pos:lineEnd]
		colon := indexByte(line, ':')
		if colon == -1 {
			pos = lineEnd + 2
			continue
		}

		key := strings.ToLower(string(line[:colon]))
		val := line[colon+1:]
		i := 0
		for i < len(val) && (val[i] == ' ' || val[i] == '\t') {
			i++
		}
		value := string(val[i:])

		if key == headerContentLength {
			if _, exists := headers[key]; exists {
				return nil, newProtoErr(KindMultipleContentLength, "multiple content-length headers present")
			}
		}
		headers[key] = value
		pos = lineEnd + 2
	}
	return headers, nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
