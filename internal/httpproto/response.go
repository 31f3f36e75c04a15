package httpproto

import (
	"sort"
	"strconv"
)

// SerializeResponse produces the wire form of a response:
// "HTTP/1.1 <code> <reason>\r\n", then each header as "key: value\r\n",
// then a blank line, then the body. Headers are emitted in sorted-key
// order so serialization is deterministic and reproducible across
// calls, even though header order has no wire-level meaning.
func SerializeResponse(version string, status int, reason string, headers map[string]string, body []byte) []byte {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	size := len(version) + 1 + 3 + 1 + len(reason) + 2
	for _, k := range keys {
		size += len(k) + 2 + len(headers[k]) + 2
	}
	size += 2 + len(body)

	buf := make([]byte, 0, size)
	buf = append(buf, version...)
	buf = append(buf, ' ')
	buf = append(buf, strconv.Itoa(status)...)
	buf = append(buf, ' ')
	buf = append(buf, reason...)
	buf = append(buf, '\r', '\n')

	for _, k := range keys {
		buf = append(buf, k...)
		buf = append(buf, ':', ' ')
		buf = append(buf, headers[k]...)
		buf = append(buf, '\r', '\n')
	}
	buf = append(buf, '\r', '\n')
	buf = append(buf, body...)
	return buf
}
