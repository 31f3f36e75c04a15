package evhttp

import "github.com/corewire/evhttp/internal/httpproto"

// ReasonPhrase returns the default reason phrase the core would use for
// code if a handler sets StatusCode without Reason, or "" if code isn't
// one of the core's known statuses.
func ReasonPhrase(code int) string {
	return httpproto.StatusText(code)
}
