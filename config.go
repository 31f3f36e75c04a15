package evhttp

import "time"

// Config carries the knobs a host application sets when constructing a
// Server. It is plain data — loading it from flags, env vars or a file
// is the embedder's job (see cmd/evhttpd for one way to do it).
type Config struct {
	// Port is the TCP port the listener binds on all interfaces.
	Port int

	// MaxPendingConnections is the listen(2) backlog. <= 0 falls back to
	// the engine package's default.
	MaxPendingConnections int

	// MaxConcurrentConnections is a soft bound: the loop keeps accepting
	// past it, but operators should size file descriptor limits and the
	// poller accordingly. 0 means unbounded.
	MaxConcurrentConnections int

	// InactiveConnectionTimeoutSeconds is how long a connection may sit
	// idle (no bytes read or written) before the server closes it.
	InactiveConnectionTimeoutSeconds int

	// ExternalLogging routes log output to LogFilePath instead of
	// stdout when true.
	ExternalLogging bool

	// LogFilePath is where logs are written when ExternalLogging is
	// true. Ignored otherwise.
	LogFilePath string
}

func (c Config) inactiveTimeout() time.Duration {
	if c.InactiveConnectionTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.InactiveConnectionTimeoutSeconds) * time.Second
}
