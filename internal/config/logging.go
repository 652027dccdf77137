package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger builds the process logger: human-readable text on stderr and,
// when a log file is configured, JSON lines appended to that file.
// The returned cleanup closes the file.
func SetupLogger(cfg Config, component string) (*slog.Logger, func() error) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	stderrHandler := slog.NewTextHandler(os.Stderr, opts)

	if cfg.LogFile == "" {
		return slog.New(stderrHandler).With("component", component), func() error { return nil }
	}

	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger := slog.New(stderrHandler).With("component", component)
		logger.Error("failed to open log file, using stderr only", "error", err, "file", cfg.LogFile)
		return logger, func() error { return nil }
	}

	return NewLogger(os.Stderr, file, cfg.LogLevel).With("component", component), file.Close
}

// NewLogger fans out to the given writers; text on console, JSON on structured.
func NewLogger(console, structured io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	return slog.New(slogmulti.Fanout(
		slog.NewTextHandler(console, opts),
		slog.NewJSONHandler(structured, opts),
	))
}
