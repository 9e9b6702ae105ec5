// Package logger builds the zerolog.Logger every component of the pricing
// engine logs through, so level parsing and output formatting live in one
// place instead of being repeated at each call site.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config controls the base logger New builds.
type Config struct {
	// Level is one of debug, info, warn, error. Anything else falls back
	// to info.
	Level string
	// Pretty switches from newline-delimited JSON to zerolog's human
	// console writer, for local development.
	Pretty bool
	// Service tags every record with a "service" field so multiple
	// processes (the HTTP server, a future batch job) can share one log
	// aggregation pipeline without their records being indistinguishable.
	Service string
}

func parseLevel(raw string) zerolog.Level {
	switch raw {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New builds a zerolog.Logger configured from cfg. It also sets the
// process-wide global level and timestamp format, since zerolog consults
// those even for loggers derived via .With() elsewhere in the tree.
func New(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stdout
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	l := zerolog.New(output).With().Timestamp().Caller()
	if cfg.Service != "" {
		l = l.Str("service", cfg.Service)
	}
	return l.Logger()
}

// SetGlobalLogger points zerolog's package-level logger at l, so code that
// reaches for log.Logger directly (third-party libraries, panics caught by
// the recoverer middleware) still writes through the configured output.
func SetGlobalLogger(l zerolog.Logger) {
	log.Logger = l
}
