package orchestrator

import (
	"context"
	"log/slog"
	"time"
)

// Option represents a functional option for configuring Runner
type Option func(*Runner)

// WithLogHandler sets a custom slog handler for the Runner instance.
func WithLogHandler(handler slog.Handler) Option {
	return func(r *Runner) {
		if handler != nil {
			r.logger = slog.New(handler).WithGroup("orchestrator.Runner")
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

// WithStore sets the session store the loop persists into after changes.
func WithStore(store recordStore) Option {
	return func(r *Runner) {
		r.store = store
	}
}

// WithDebounceInterval overrides the recompile debounce interval.
func WithDebounceInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.debounceInterval = d
		}
	}
}
