package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-core/internal/config"
)

// New builds the process logger: JSON lines in production, a console writer
// everywhere else.
func New(cfg config.Config, service string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if !cfg.IsProduction() {
		out = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Str("env", cfg.Env).
		Logger()
}
