package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger in development and a JSON logger otherwise
func New(production bool) zerolog.Logger {
	return newLogger(os.Stdout, production)
}

func newLogger(out io.Writer, production bool) zerolog.Logger {
	if production {
		return zerolog.New(out).
			Level(zerolog.InfoLevel).
			With().
			Timestamp().
			Str("service", "signaling").
			Logger()
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Logger()
}
