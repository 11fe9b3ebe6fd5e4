package worker

import (
	"context"
	"log/slog"

	"github.com/replbox/replbox/internal/compiler"
)

// Option represents a functional option for configuring Runner
type Option func(*Runner)

// WithLogHandler sets a custom slog handler for the Runner instance.
func WithLogHandler(handler slog.Handler) Option {
	return func(r *Runner) {
		if handler != nil {
			r.logger = slog.New(handler).WithGroup("worker.Runner")
		}
	}
}

// WithLogger sets a logger for the Runner instance.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithContext sets a custom parent context for the Runner instance.
func WithContext(ctx context.Context) Option {
	return func(r *Runner) {
		if ctx != nil {
			r.parentCtx = ctx
		}
	}
}

// WithEngine replaces the default engine, mostly for tests.
func WithEngine(engine *compiler.Engine) Option {
	return func(r *Runner) {
		if engine != nil {
			r.engine = engine
		}
	}
}
