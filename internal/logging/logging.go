package logging

import (
	"io"
	"log/slog"
	"os"
)

// Init installs the default logger on stderr.
func Init() {
	Setup(os.Stderr)
}

// Setup installs the default logger writing to w. The level comes from
// LOG_LEVEL and defaults to errors only.
func Setup(w io.Writer) {
	logger := slog.New(
		slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: Level(),
		}),
	)
	slog.SetDefault(logger)
}

// Redirect sends log output to the file at path, or discards it when path is
// empty. The terminal UI owns stdout/stderr while it runs.
func Redirect(path string) (func() error, error) {
	if path == "" {
		Setup(io.Discard)
		return func() error { return nil }, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	Setup(f)
	return f.Close, nil
}

// Level maps LOG_LEVEL to a slog level.
func Level() slog.Level {
	level := slog.LevelError // default: production only shows errors

	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		switch l {
		case "dev", "development", "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn", "warning":
			level = slog.LevelWarn
		case "error", "production", "prod":
			level = slog.LevelError
		}
	}
	return level
}
