// Package logging provides structured logging setup for smartrent.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup initializes the default slog logger on stderr so command output
// on stdout stays machine-readable.
// Dev mode uses human-readable text at debug level; prod uses JSON at info.
func Setup(devMode bool) {
	slog.SetDefault(New(os.Stderr, devMode))
}

// New returns a logger writing to w with the dev/prod handler choice.
func New(w io.Writer, devMode bool) *slog.Logger {
	var handler slog.Handler
	if devMode {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return slog.New(handler)
}

// Quiet returns a text logger on w that only shows warnings and errors.
// CLI commands use it so their own output is not buried in info logs.
func Quiet(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
