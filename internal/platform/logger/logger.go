package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a JSON slog logger on stdout at level.
func New(level slog.Level) *slog.Logger {
	return NewWithWriter(os.Stdout, level)
}

// NewWithWriter is New writing to w.
func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})).
		With("service", "fedcore")
}
