package evhttp

import "github.com/corewire/evhttp/internal/conn"

// Response is populated by Handler. Setting a nonzero StatusCode marks
// it ready; Connection and Content-Length are forced after the handler
// returns, overwriting whatever the handler set for those two keys.
type Response = conn.Response

// NewResponse returns an empty, not-yet-ready response. Handlers
// receive one already constructed; this is exposed for tests that want
// to build one directly.
func NewResponse() *Response { return conn.NewResponse() }
