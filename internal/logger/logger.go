// Package logger configures the console's zerolog output.
package logger

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"linkdeck/internal/config"
)

// New builds the root logger. Dev gets debug-level console output;
// stage and prod stay at info.
func New(env string, out io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if env == config.EnvDev {
		level = zerolog.DebugLevel
	}

	writer := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
