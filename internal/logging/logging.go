// Package logging builds the zerolog.Logger the server and its
// connections log through. The event loop never blocks on a log call:
// records are handed to a diode.Writer, which drops the oldest entry
// rather than stall the caller if the background drain falls behind.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
)

const (
	diodeBufferSize   = 1000
	diodePollInterval = 10 * time.Millisecond
)

// New builds a logger for one Server to own. externalLogging routes output to
// path instead of stdout; path is ignored when externalLogging is
// false. The returned closer must be called on shutdown to stop the
// diode's drain goroutine.
func New(externalLogging bool, path string) (zerolog.Logger, io.Closer, error) {
	var sink io.Writer = os.Stdout
	var file *os.File
	if externalLogging {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		file = f
		sink = f
	}

	dropped := func(missed int) {
		// Can't log through the logger we're building; stderr is the
		// only channel left for "we just lost N log lines."
		os.Stderr.WriteString("evhttp: logger dropped messages under load\n")
	}
	dw := diode.NewWriter(sink, diodeBufferSize, diodePollInterval, dropped)

	logger := zerolog.New(dw).With().Timestamp().Logger()
	return logger, &closer{dw: dw, file: file}, nil
}

type closer struct {
	dw   diode.Writer
	file *os.File
}

func (c *closer) Close() error {
	err := c.dw.Close()
	if c.file != nil {
		if ferr := c.file.Close(); err == nil {
			err = ferr
		}
	}
	return err
}
