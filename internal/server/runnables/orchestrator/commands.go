package orchestrator

import (
	"context"
	"fmt"

	"github.com/replbox/replbox/internal/compiler"
	"github.com/replbox/replbox/internal/session"
)

// command is one unit of work for the run loop. apply always executes on the
// loop goroutine and has exclusive access to the session aggregate.
type command interface {
	apply(r *Runner)
}

type cmdSetCode struct {
	code string
	done chan struct{}
}

func (c cmdSetCode) apply(r *Runner) {
	r.applySetCode(c.code)
	close(c.done)
}

type cmdTogglePlugin struct {
	key     string
	enabled bool
	done    chan error
}

func (c cmdTogglePlugin) apply(r *Runner) {
	c.done <- r.applyTogglePlugin(c.key, c.enabled)
}

type cmdSetEnv struct {
	env  session.EnvConfig
	done chan struct{}
}

func (c cmdSetEnv) apply(r *Runner) {
	r.applySetEnv(c.env)
	close(c.done)
}

// Options carries the UI flags. Nil fields are left unchanged.
type Options struct {
	ShowSidebar  *bool
	ShowEnvPanel *bool
	LineWrap     *bool
}

type cmdSetOptions struct {
	opts Options
	done chan struct{}
}

func (c cmdSetOptions) apply(r *Runner) {
	r.applySetOptions(c.opts)
	close(c.done)
}

type cmdSnapshot struct {
	reply chan *session.State
}

func (c cmdSnapshot) apply(r *Runner) {
	c.reply <- r.state.Clone()
}

type cmdImport struct {
	rec  session.Record
	done chan error
}

func (c cmdImport) apply(r *Runner) {
	c.done <- r.applyImport(c.rec)
}

type cmdPluginLoadDone struct {
	key    string
	ok     bool
	errMsg string
}

func (c cmdPluginLoadDone) apply(r *Runner) {
	r.applyPluginLoadDone(c.key, c.ok, c.errMsg)
}

type cmdDebounceFired struct{}

func (c cmdDebounceFired) apply(r *Runner) {
	r.dispatchCompile()
}

type cmdCompileDone struct {
	seq     uint64
	outcome compiler.Outcome
}

func (c cmdCompileDone) apply(r *Runner) {
	r.applyCompileDone(c.seq, c.outcome)
}

type cmdSubscribe struct {
	ch    chan *session.State
	reply chan uint64
}

func (c cmdSubscribe) apply(r *Runner) {
	r.nextSubID++
	r.subscribers[r.nextSubID] = c.ch
	c.reply <- r.nextSubID
}

type cmdUnsubscribe struct {
	id uint64
}

func (c cmdUnsubscribe) apply(r *Runner) {
	if ch, ok := r.subscribers[c.id]; ok {
		close(ch)
		delete(r.subscribers, c.id)
	}
}

// post queues a command for the run loop, giving up when ctx ends.
func (r *Runner) post(ctx context.Context, cmd command) error {
	select {
	case r.commands <- cmd:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("orchestrator command not accepted: %w", ctx.Err())
	}
}

// postAsync queues a loop-internal command, dropping it if the runner is
// shutting down. Used by timers and load goroutines that outlive requests.
func (r *Runner) postAsync(cmd command) {
	select {
	case r.commands <- cmd:
	case <-r.runCtx.Done():
	}
}

// SetCode replaces the session source and schedules a debounced recompile.
func (r *Runner) SetCode(ctx context.Context, code string) error {
	cmd := cmdSetCode{code: code, done: make(chan struct{})}
	if err := r.post(ctx, cmd); err != nil {
		return err
	}
	select {
	case <-cmd.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TogglePlugin flips one preset or plugin toggle. Enabling an unloaded
// plugin starts its load; the recompile follows when the load finishes.
func (r *Runner) TogglePlugin(ctx context.Context, key string, enabled bool) error {
	cmd := cmdTogglePlugin{key: key, enabled: enabled, done: make(chan error, 1)}
	if err := r.post(ctx, cmd); err != nil {
		return err
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetEnv replaces the environment-target settings.
func (r *Runner) SetEnv(ctx context.Context, env session.EnvConfig) error {
	cmd := cmdSetEnv{env: env, done: make(chan struct{})}
	if err := r.post(ctx, cmd); err != nil {
		return err
	}
	select {
	case <-cmd.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetOptions updates the UI flags. These never trigger a recompile.
func (r *Runner) SetOptions(ctx context.Context, opts Options) error {
	cmd := cmdSetOptions{opts: opts, done: make(chan struct{})}
	if err := r.post(ctx, cmd); err != nil {
		return err
	}
	select {
	case <-cmd.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of the current session aggregate.
func (r *Runner) Snapshot(ctx context.Context) (*session.State, error) {
	cmd := cmdSnapshot{reply: make(chan *session.State, 1)}
	if err := r.post(ctx, cmd); err != nil {
		return nil, err
	}
	select {
	case snap := <-cmd.reply:
		return snap, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Import replaces the whole session with a record, restarting plugin loads
// to match its toggles.
func (r *Runner) Import(ctx context.Context, rec session.Record) error {
	cmd := cmdImport{rec: rec, done: make(chan error, 1)}
	if err := r.post(ctx, cmd); err != nil {
		return err
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Watch subscribes to session snapshots. A snapshot is sent after every
// state change; slow receivers miss intermediate snapshots rather than
// blocking the loop. The channel closes when ctx ends or the runner stops.
func (r *Runner) Watch(ctx context.Context) (<-chan *session.State, error) {
	cmd := cmdSubscribe{
		ch:    make(chan *session.State, 1),
		reply: make(chan uint64, 1),
	}
	if err := r.post(ctx, cmd); err != nil {
		return nil, err
	}

	var id uint64
	select {
	case id = <-cmd.reply:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	go func() {
		<-ctx.Done()
		r.postAsync(cmdUnsubscribe{id: id})
	}()

	return cmd.ch, nil
}
