package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. Text to stdout by default; "json" switches
// to the structured handler for log shippers.
func New(format string) *slog.Logger {
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, nil)
	default:
		handler = slog.NewTextHandler(os.Stdout, nil)
	}
	return slog.New(handler)
}
