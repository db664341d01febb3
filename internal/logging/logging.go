// Package logging builds the zerolog logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/byteowlz/factscan/internal/config"
)

// New returns a console logger at cfg.Level. When cfg.File is set, records
// go to that file as JSON lines instead of stderr. The returned closer must
// be called on exit.
func New(cfg config.LoggingConfig) (zerolog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.File == "" {
		out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		return zerolog.New(out).Level(level).With().Timestamp().Logger(), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("error creating log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("error opening log file: %w", err)
	}
	return zerolog.New(f).Level(level).With().Timestamp().Logger(), f, nil
}

// ParseLevel accepts zerolog level names; empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	if s == "warning" {
		s = "warn"
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
