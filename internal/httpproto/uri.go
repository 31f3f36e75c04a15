package httpproto

import "strings"

// PathFromURI strips the query string and normalizes "." and ".."
// segments out of a request-target. This core has a single global
// handler and doesn't route on the result, but exposes the operation
// for callers that want it. The query string is stripped before
// normalization, not after, so that a "." or ".." appearing only in
// the query string never affects path resolution.
func PathFromURI(uri string) string {
	if idx := strings.IndexByte(uri, '?'); idx != -1 {
		uri = uri[:idx]
	}

	segments := strings.Split(uri, "/")
	stack := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, seg)
		}
	}
	return "/" + strings.Join(stack, "/")
}
