package evhttp

import "github.com/corewire/evhttp/internal/conn"

// Request is a fully-parsed HTTP/1.1 request handed to Handler.
type Request = conn.Request
