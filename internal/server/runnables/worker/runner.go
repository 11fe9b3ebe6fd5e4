// Package worker hosts the compile engine in its own execution context.
// Everything crosses the boundary as a message: callers use the proxy
// methods, each of which carries its own reply channel so a result can only
// ever route back to the call that requested it.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofrs/uuid/v5"
	"github.com/robbyt/go-supervisor/supervisor"

	"github.com/replbox/replbox/internal/compiler"
	"github.com/replbox/replbox/internal/server/finitestate"
)

var (
	_ supervisor.Runnable  = (*Runner)(nil)
	_ supervisor.Stateable = (*Runner)(nil)
)

type action string

const (
	actionCompile     action = "compile"
	actionLoadPlugin  action = "loadPlugin"
	actionRegisterEnv action = "registerEnvPreset"
)

// request is one message into the worker context.
type request struct {
	action    action
	id        uuid.UUID
	code      string
	config    compiler.Config
	pluginKey string

	// reply belongs exclusively to the issuing caller.
	reply chan response
}

type response struct {
	outcome compiler.Outcome
	ok      bool
}

// Runner owns the compile engine and serves requests until its context
// ends. Requests run concurrently; the engine guards its own state.
type Runner struct {
	logger *slog.Logger
	fsm    finitestate.Machine
	engine *compiler.Engine

	requests chan request

	parentCtx context.Context
	runCtx    context.Context
	runCancel context.CancelFunc
}

// NewRunner creates a worker Runner with a fresh engine.
func NewRunner(opts ...Option) (*Runner, error) {
	r := &Runner{
		logger:    slog.Default().WithGroup("worker.Runner"),
		requests:  make(chan request),
		parentCtx: context.Background(),
	}

	for _, opt := range opts {
		opt(r)
	}

	fsm, err := finitestate.New(r.logger.WithGroup("fsm").Handler())
	if err != nil {
		return nil, fmt.Errorf("failed to create state machine: %w", err)
	}
	r.fsm = fsm

	if r.engine == nil {
		r.engine = compiler.NewEngine(
			compiler.WithLogHandler(r.logger.Handler()),
		)
	}

	return r, nil
}

// String implements the supervisor.Runnable interface
func (r *Runner) String() string {
	return "worker.Runner"
}

// Run serves requests until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Debug("Starting Runner")

	if err := r.fsm.Transition(finitestate.StatusBooting); err != nil {
		return fmt.Errorf("failed to transition to booting state: %w", err)
	}

	r.runCtx, r.runCancel = context.WithCancel(ctx)

	if err := r.fsm.Transition(finitestate.StatusRunning); err != nil {
		return fmt.Errorf("failed to transition to running state: %w", err)
	}

	for {
		select {
		case req := <-r.requests:
			// Each request gets its own goroutine so slow compiles never
			// block plugin loads.
			go r.serve(req)
		case <-r.runCtx.Done():
			return r.shutdown()
		case <-r.parentCtx.Done():
			return r.shutdown()
		}
	}
}

func (r *Runner) shutdown() error {
	if err := r.fsm.Transition(finitestate.StatusStopping); err != nil {
		r.logger.Error("Failed to transition to stopping state", "error", err)
	}
	if err := r.fsm.Transition(finitestate.StatusStopped); err != nil {
		return fmt.Errorf("failed to transition to stopped state: %w", err)
	}
	r.logger.Debug("Runner stopped")
	return nil
}

// Stop implements the supervisor.Runnable interface
func (r *Runner) Stop() {
	r.logger.Debug("Stopping Runner")
	if r.runCancel != nil {
		r.runCancel()
	}
}

// GetState implements the supervisor.Stateable interface
func (r *Runner) GetState() string {
	return r.fsm.GetState()
}

// GetStateChan implements the supervisor.Stateable interface
func (r *Runner) GetStateChan(ctx context.Context) <-chan string {
	return r.fsm.GetStateChan(ctx)
}

// IsRunning implements the supervisor.Stateable interface
func (r *Runner) IsRunning() bool {
	return r.fsm.GetState() == finitestate.StatusRunning
}

func (r *Runner) serve(req request) {
	logger := r.logger.With("request_id", req.id, "action", req.action)

	var resp response
	switch req.action {
	case actionCompile:
		resp.outcome = r.compile(req, logger)
		resp.ok = !resp.outcome.Failed()

	case actionLoadPlugin:
		if err := r.engine.LoadBundle(req.pluginKey); err != nil {
			logger.Warn("plugin load failed", "key", req.pluginKey, "error", err)
			resp.ok = false
		} else {
			logger.Debug("plugin loaded", "key", req.pluginKey)
			resp.ok = true
		}

	case actionRegisterEnv:
		if err := r.engine.RegisterEnvPreset(); err != nil {
			logger.Warn("env preset registration failed", "error", err)
			resp.ok = false
		} else {
			logger.Debug("env preset registered")
			resp.ok = true
		}

	default:
		logger.Error("unknown action")
	}

	// The reply channel is buffered; if the caller gave up, the response is
	// dropped here rather than leaking a goroutine.
	select {
	case req.reply <- resp:
	default:
	}
}
