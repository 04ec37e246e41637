package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup initializes the global slog logger with JSON output to stdout and
// returns the handler so it can be combined with others later.
func Setup() slog.Handler {
	handler := NewJSONHandler(os.Stdout)
	slog.SetDefault(slog.New(handler))
	return handler
}

func NewJSONHandler(w io.Writer) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
}
