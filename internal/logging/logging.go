package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level maps a LOG_LEVEL value to a slog level. Unknown values and the empty
// string mean errors only.
func Level(value string) slog.Level {
	switch strings.ToLower(value) {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Init installs the default logger. Logs go to stderr unless LOG_FILE names a
// file, which keeps them out of the chat screen. The returned closer releases
// that file.
func Init() (io.Closer, error) {
	var out io.WriteCloser = nopCloser{os.Stderr}
	if path := os.Getenv("LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		out = f
	}

	slog.SetDefault(New(out, Level(os.Getenv("LOG_LEVEL"))))
	return out, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
