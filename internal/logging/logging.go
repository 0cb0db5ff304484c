// Package logging builds the slog logger of the upline command. Log records
// never go to the terminal by default, since they would corrupt the line
// being edited.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/getsentry/sentry-go"
	slogsentry "github.com/getsentry/sentry-go/slog"
	"github.com/owenthereal/upline/internal/version"
	slogmulti "github.com/samber/slog-multi"
)

const (
	sentryFlushTimeout = 2 * time.Second
)

// Logger wraps slog.Logger with cleanup capability
type Logger struct {
	*slog.Logger
	cleanupFuncs []func() error
}

// Close runs every cleanup function, even after one failed, and returns
// the first error.
func (l *Logger) Close() error {
	var first error
	for _, cleanup := range l.cleanupFuncs {
		if err := cleanup(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:       l.Logger.With(args...),
		cleanupFuncs: l.cleanupFuncs,
	}
}

// Option configures a logger
type Option func(*config) error

type config struct {
	level        slog.Level
	text         bool
	outputs      []io.Writer
	handlers     []slog.Handler
	cleanupFuncs []func() error
}

// New creates a logger. Without an output option records are discarded,
// though extra handlers such as Sentry still receive them.
func New(opts ...Option) (*Logger, error) {
	cfg := &config{
		level: slog.LevelInfo,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			_ = (&Logger{cleanupFuncs: cfg.cleanupFuncs}).Close()
			return nil, err
		}
	}

	if len(cfg.outputs) > 0 {
		w := io.MultiWriter(cfg.outputs...)
		hopts := &slog.HandlerOptions{Level: cfg.level}
		if cfg.text {
			cfg.handlers = append(cfg.handlers, slog.NewTextHandler(w, hopts))
		} else {
			cfg.handlers = append(cfg.handlers, slog.NewJSONHandler(w, hopts))
		}
	}

	var handler slog.Handler = slog.DiscardHandler
	if len(cfg.handlers) > 0 {
		handler = slogmulti.Fanout(cfg.handlers...)
	}

	return &Logger{
		Logger:       slog.New(handler),
		cleanupFuncs: cfg.cleanupFuncs,
	}, nil
}

// Must wraps New and panics on error
func Must(opts ...Option) *Logger {
	logger, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return logger
}

func Level(level slog.Level) Option {
	return func(c *config) error {
		c.level = level
		return nil
	}
}

func Debug() Option {
	return Level(slog.LevelDebug)
}

// Text switches from JSON to logfmt style records.
func Text() Option {
	return func(c *config) error {
		c.text = true
		return nil
	}
}

// Writer logs to w.
func Writer(w io.Writer) Option {
	return func(c *config) error {
		c.outputs = append(c.outputs, w)
		return nil
	}
}

// File logs to a file (path is required)
func File(path string) Option {
	return func(c *config) error {
		if path == "" {
			return fmt.Errorf("log file path is required")
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file %q: %w", path, err)
		}

		c.outputs = append(c.outputs, file)
		c.cleanupFuncs = append(c.cleanupFuncs, file.Close)
		return nil
	}
}

// Sentry reports error records to Sentry. An empty dsn disables it.
func Sentry(dsn string) Option {
	return func(c *config) error {
		if dsn == "" {
			return nil
		}

		sentryHandler, cleanup, err := newSentryHandler(dsn)
		if err != nil {
			return err
		}
		c.handlers = append(c.handlers, sentryHandler)
		c.cleanupFuncs = append(c.cleanupFuncs, cleanup)
		return nil
	}
}

func newSentryHandler(dsn string) (slog.Handler, func() error, error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          "upline@" + version.String(),
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, nil, err
	}

	handler := slogsentry.Option{
		Level: slog.LevelError,
	}.NewSentryHandler(context.Background())

	cleanup := func() error {
		ok := sentry.Flush(sentryFlushTimeout)
		if !ok {
			return fmt.Errorf("sentry flush timeout")
		}
		return nil
	}

	return handler, cleanup, nil
}
