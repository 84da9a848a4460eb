// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// New returns a logger writing to w at the given level and format.
func New(w io.Writer, level, format string) (*log.Logger, error) {
	logger := log.New()
	if err := Configure(logger, w, level, format); err != nil {
		return nil, err
	}
	return logger, nil
}

// Configure applies level and format to logger.
func Configure(logger *log.Logger, w io.Writer, level, format string) error {
	lvl, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	switch strings.ToLower(format) {
	case "", FormatText:
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case FormatJSON:
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("logging: unknown format %q (expected text or json)", format)
	}

	logger.SetOutput(w)
	logger.SetLevel(lvl)
	return nil
}

// Component returns an entry tagged with the component field.
func Component(logger *log.Logger, name string) *log.Entry {
	return logger.WithField("component", name)
}
