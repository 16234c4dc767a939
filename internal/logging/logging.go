// Package logging builds the zerolog loggers used across the application.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/adminauth/internal/config"
)

const FieldComponent = "component"

// New returns a logger writing to stderr and installs it as the global
// zerolog logger.
func New(cfg config.Log) zerolog.Logger {
	l := NewWithWriter(cfg, os.Stderr)
	log.Logger = l
	return l
}

// NewWithWriter returns a logger writing to w.
func NewWithWriter(cfg config.Log, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if strings.EqualFold(cfg.Format, "console") || strings.EqualFold(cfg.Format, "pretty") {
		w = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    cfg.NoColor,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Component tags l with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str(FieldComponent, name).Logger()
}
