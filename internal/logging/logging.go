// Package logging configures the process-wide slog logger and formats
// recovered errors with enough context to diagnose them after the run.
package logging

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects level, output format and an optional rotating log file.
type Options struct {
	Level  string
	Format string
	File   string
}

// Setup installs a default slog logger writing to stderr and, when
// opts.File is set, to a size-rotated file. The returned closer releases
// the file and is safe to call when no file is configured.
func Setup(opts Options) (*slog.Logger, io.Closer) {
	var w io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		w = io.MultiWriter(os.Stderr, lj)
		closer = lj
	}

	logger := slog.New(NewHandler(w, opts))
	slog.SetDefault(logger)
	return logger, closer
}

// NewHandler builds the handler Setup uses, without touching global state.
func NewHandler(w io.Writer, opts Options) slog.Handler {
	ho := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	if strings.EqualFold(opts.Format, "json") {
		return slog.NewJSONHandler(w, ho)
	}
	return slog.NewTextHandler(w, ho)
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// HTTPError is implemented by errors that carry an upstream HTTP response.
type HTTPError interface {
	error
	HTTPStatus() int
	HTTPBody() string
}

// ErrorAttrs returns the slog attributes for a recovered failure: the label,
// the error message and, when the chain holds an HTTPError, its status and body.
func ErrorAttrs(label string, err error) []any {
	attrs := []any{"label", label, "error", err}
	var he HTTPError
	if errors.As(err, &he) {
		attrs = append(attrs, "status", he.HTTPStatus())
		if body := he.HTTPBody(); body != "" {
			attrs = append(attrs, "body", truncate(body, 2000))
		}
	}
	return attrs
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
