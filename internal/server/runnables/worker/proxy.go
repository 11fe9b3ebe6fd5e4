package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofrs/uuid/v5"
	"github.com/robbyt/go-loglater"

	"github.com/replbox/replbox/internal/compiler"
)

// Compile runs one transform in the worker context and blocks until its
// result arrives or ctx ends. Results are routed by the per-call reply
// channel, so concurrent callers can never receive each other's outcomes.
func (r *Runner) Compile(
	ctx context.Context,
	code string,
	cfg compiler.Config,
) (compiler.Outcome, error) {
	resp, err := r.send(ctx, request{
		action: actionCompile,
		code:   code,
		config: cfg,
	})
	if err != nil {
		return compiler.Outcome{}, err
	}
	return resp.outcome, nil
}

// LoadPlugin loads one bundle into the engine. The returned bool reports
// whether the load succeeded; a false return is an expected outcome, not
// a transport error.
func (r *Runner) LoadPlugin(ctx context.Context, key string) (bool, error) {
	resp, err := r.send(ctx, request{
		action:    actionLoadPlugin,
		pluginKey: key,
	})
	if err != nil {
		return false, err
	}
	return resp.ok, nil
}

// RegisterEnvPreset activates the env preset in the engine. The env bundle
// must already be loaded.
func (r *Runner) RegisterEnvPreset(ctx context.Context) (bool, error) {
	resp, err := r.send(ctx, request{action: actionRegisterEnv})
	if err != nil {
		return false, err
	}
	return resp.ok, nil
}

func (r *Runner) send(ctx context.Context, req request) (response, error) {
	id, err := uuid.NewV6()
	if err != nil {
		return response{}, fmt.Errorf("failed to generate request ID: %w", err)
	}
	req.id = id
	req.reply = make(chan response, 1)

	select {
	case r.requests <- req:
	case <-ctx.Done():
		return response{}, fmt.Errorf("worker request not accepted: %w", ctx.Err())
	}

	select {
	case resp := <-req.reply:
		return resp, nil
	case <-ctx.Done():
		return response{}, fmt.Errorf("worker response not received: %w", ctx.Err())
	}
}

// compile runs the transform with a log collector in front of the worker's
// handler, then folds everything logged during the request into the outcome.
func (r *Runner) compile(req request, logger *slog.Logger) compiler.Outcome {
	collector := loglater.NewLogCollector(logger.Handler())
	outcome := compiler.Compile(req.code, req.config, r.engine, slog.New(collector))

	records := collector.GetLogs()
	for _, rec := range records {
		outcome.Logs = append(outcome.Logs, fmt.Sprintf("%s %s", rec.Level, rec.Message))
	}
	return outcome
}
