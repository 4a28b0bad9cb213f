// Package perflog is the classification engine's performance log: one
// JSON line per terminal job, independent of the application's general
// structured logging, so operators can tail job timings without noise.
package perflog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Open resolves path to an absolute location and returns a logger that
// appends one JSON record per call to it. A blank path disables
// performance logging: the returned logger discards everything written
// to it.
func Open(path string) (*slog.Logger, error) {
	if path == "" {
		return slog.New(slog.NewJSONHandler(io.Discard, nil)), nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(abs, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	return slog.New(slog.NewJSONHandler(f, nil)), nil
}
