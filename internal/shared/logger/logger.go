package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. devMode gives colourised console output,
// otherwise JSON lines suitable for log shipping.
func New(devMode bool) zerolog.Logger {
	return NewWithWriter(os.Stderr, devMode)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, devMode bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level := zerolog.InfoLevel
	if devMode {
		level = zerolog.DebugLevel
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", "payoutguard").
		Logger()
}
