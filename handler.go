package evhttp

import "github.com/corewire/evhttp/internal/conn"

// Handler is the host-supplied request callback. It runs synchronously
// on the event-loop thread once per request, after the full request
// (including body) has been read. A handler that blocks blocks the
// entire server — by design, per the v1 embedding contract.
type Handler = conn.Handler
