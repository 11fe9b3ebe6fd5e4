// Package orchestrator owns the live playground session. A single run loop
// holds the session aggregate; every mutation arrives as a command on a
// channel, so plugin loads, debounced recompiles, and client requests can
// never race on shared state.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robbyt/go-supervisor/supervisor"

	"github.com/replbox/replbox/internal/compiler"
	"github.com/replbox/replbox/internal/registry"
	"github.com/replbox/replbox/internal/server/finitestate"
	"github.com/replbox/replbox/internal/session"
)

var (
	_ supervisor.Runnable  = (*Runner)(nil)
	_ supervisor.Stateable = (*Runner)(nil)
)

// DefaultDebounceInterval is how long the loop waits after the last code or
// setting change before dispatching a compile.
const DefaultDebounceInterval = 250 * time.Millisecond

// compileWorker is the slice of the worker proxy the orchestrator needs.
type compileWorker interface {
	Compile(ctx context.Context, code string, cfg compiler.Config) (compiler.Outcome, error)
	LoadPlugin(ctx context.Context, key string) (bool, error)
	RegisterEnvPreset(ctx context.Context) (bool, error)
}

// evalSandbox is the slice of the evaluation sandbox the orchestrator needs.
type evalSandbox interface {
	LoadPolyfill() error
	PolyfillLoaded() bool
	Evaluate(code string) ([]string, error)
}

// recordStore persists the session between runs.
type recordStore interface {
	Save(rec session.Record) error
}

// Runner drives the session run loop.
type Runner struct {
	logger  *slog.Logger
	fsm     finitestate.Machine
	worker  compileWorker
	sandbox evalSandbox
	store   recordStore

	initial          session.Record
	debounceInterval time.Duration

	commands chan command

	// Everything below is owned by the run loop goroutine.
	state         *session.State
	machines      map[string]finitestate.Machine
	debounceTimer *time.Timer
	compileSeq    uint64
	subscribers   map[uint64]chan *session.State
	nextSubID     uint64

	parentCtx context.Context
	runCtx    context.Context
	runCancel context.CancelFunc
}

// NewRunner creates an orchestrator Runner around a worker proxy and an
// evaluation sandbox. The session starts from the given record.
func NewRunner(
	worker compileWorker,
	sandbox evalSandbox,
	initial session.Record,
	opts ...Option,
) (*Runner, error) {
	if worker == nil {
		return nil, fmt.Errorf("worker proxy is required")
	}
	if sandbox == nil {
		return nil, fmt.Errorf("evaluation sandbox is required")
	}

	r := &Runner{
		logger:           slog.Default().WithGroup("orchestrator.Runner"),
		worker:           worker,
		sandbox:          sandbox,
		initial:          initial,
		debounceInterval: DefaultDebounceInterval,
		commands:         make(chan command, 64),
		subscribers:      make(map[uint64]chan *session.State),
		parentCtx:        context.Background(),
	}

	for _, opt := range opts {
		opt(r)
	}

	fsm, err := finitestate.New(r.logger.WithGroup("fsm").Handler())
	if err != nil {
		return nil, fmt.Errorf("failed to create state machine: %w", err)
	}
	r.fsm = fsm

	return r, nil
}

// String implements the supervisor.Runnable interface
func (r *Runner) String() string {
	return "orchestrator.Runner"
}

// Run restores the session, kicks off loads for every enabled plugin, and
// then serves commands until the context ends.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Debug("Starting Runner")

	if err := r.fsm.Transition(finitestate.StatusBooting); err != nil {
		return fmt.Errorf("failed to transition to booting state: %w", err)
	}

	r.runCtx, r.runCancel = context.WithCancel(ctx)

	if err := r.boot(); err != nil {
		if ferr := r.fsm.Transition(finitestate.StatusError); ferr != nil {
			r.logger.Error("Failed to transition to error state", "error", ferr)
		}
		return err
	}

	if err := r.fsm.Transition(finitestate.StatusRunning); err != nil {
		return fmt.Errorf("failed to transition to running state: %w", err)
	}

	for {
		select {
		case cmd := <-r.commands:
			cmd.apply(r)
		case <-r.runCtx.Done():
			return r.shutdown()
		case <-r.parentCtx.Done():
			return r.shutdown()
		}
	}
}

// boot builds the initial session aggregate and starts the loads that the
// restored toggle state calls for. An initial compile is dispatched right
// away so the output pane is never stale, even with nothing enabled yet.
func (r *Runner) boot() error {
	r.state = session.NewState(r.initial)

	r.machines = make(map[string]finitestate.Machine, len(r.state.Plugins))
	for key, p := range r.state.Plugins {
		m, err := finitestate.NewPluginMachine(
			r.logger.WithGroup("plugin."+key).Handler(),
			p.IsEnabled,
		)
		if err != nil {
			return fmt.Errorf("failed to create plugin machine for %q: %w", key, err)
		}
		r.machines[key] = m
	}

	for _, d := range registry.All() {
		p := r.state.Plugin(d.Key)
		if p != nil && p.IsEnabled && d.RequiresLoad {
			r.startPluginLoad(d.Key)
		}
	}

	r.dispatchCompile()
	return nil
}

func (r *Runner) shutdown() error {
	if r.debounceTimer != nil {
		r.debounceTimer.Stop()
	}
	for id, ch := range r.subscribers {
		close(ch)
		delete(r.subscribers, id)
	}

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
