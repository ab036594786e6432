package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the shared base logger. It stays silent until Init runs, so
// one-shot commands and tests only log when they opt in.
var Logger zerolog.Logger

// Init configures the global logger. Subcommands print results on
// stdout, so all logging goes to stderr: JSON lines normally, a
// human-readable console format in the development environment.
func Init(level, env string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var out io.Writer = os.Stderr
	if env == "development" {
		out = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.TimeOnly,
		}
	}

	Logger = zerolog.New(out).
		With().
		Timestamp().
		Str("service", "vigil").
		Logger()

	Logger.Debug().
		Str("level", lvl.String()).
		Str("env", env).
		Msg("logger initialized")
}

// WithComponent returns a logger scoped to one subsystem
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}
