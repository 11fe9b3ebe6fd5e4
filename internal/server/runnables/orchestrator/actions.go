package orchestrator

import (
	"fmt"
	"time"

	"github.com/replbox/replbox/internal/compiler"
	"github.com/replbox/replbox/internal/registry"
	"github.com/replbox/replbox/internal/server/finitestate"
	"github.com/replbox/replbox/internal/session"
)

func (r *Runner) applySetCode(code string) {
	if code == r.state.Code {
		return
	}
	r.state.Code = code
	r.persist()
	r.scheduleCompile()
	r.broadcast()
}

func (r *Runner) applyTogglePlugin(key string, enabled bool) error {
	d, ok := registry.Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPlugin, key)
	}

	p := r.state.Plugin(key)
	if p.IsEnabled == enabled {
		return nil
	}
	p.IsEnabled = enabled

	switch key {
	case registry.RuntimePolyfillKey:
		r.state.Evaluate = enabled
	case registry.EnvPresetKey:
		r.state.Env.Enabled = enabled
	}

	m := r.machines[key]
	switch {
	case !enabled:
		if err := m.Transition(finitestate.PluginDisabled); err != nil {
			r.logger.Warn("plugin machine transition failed", "key", key, "error", err)
		}
		r.scheduleCompile()

	case p.IsLoaded:
		// Already loaded from an earlier toggle; no reload, just recompile.
		if err := m.Transition(finitestate.PluginLoaded); err != nil {
			r.logger.Warn("plugin machine transition failed", "key", key, "error", err)
		}
		r.scheduleCompile()

	case d.RequiresLoad && !p.IsLoading:
		r.startPluginLoad(key)

	default:
		r.scheduleCompile()
	}

	r.persist()
	r.broadcast()
	return nil
}

// startPluginLoad marks a plugin loading and hands the load itself to a
// goroutine. A clean toggle-off during the load is allowed; the completion
// command reconciles whatever it finds.
func (r *Runner) startPluginLoad(key string) {
	p := r.state.Plugin(key)
	p.IsLoading = true
	p.IsLoaded = false
	p.DidError = false
	p.ErrorMessage = ""

	m := r.machines[key]
	if m.GetState() == finitestate.PluginDisabled {
		if err := m.Transition(finitestate.PluginEnabledUnloaded); err != nil {
			r.logger.Warn("plugin machine transition failed", "key", key, "error", err)
		}
	}
	if err := m.Transition(finitestate.PluginLoading); err != nil {
		r.logger.Warn("plugin machine transition failed", "key", key, "error", err)
	}

	ctx := r.runCtx
	go func() {
		var (
			ok     bool
			errMsg string
		)
		switch key {
		case registry.RuntimePolyfillKey:
			if err := r.sandbox.LoadPolyfill(); err != nil {
				errMsg = err.Error()
			} else {
				ok = true
			}

		case registry.EnvPresetKey:
			loaded, err := r.worker.LoadPlugin(ctx, key)
			switch {
			case err != nil:
				errMsg = err.Error()
			case !loaded:
				errMsg = "bundle load failed"
			default:
				registered, err := r.worker.RegisterEnvPreset(ctx)
				if err != nil {
					errMsg = err.Error()
				} else if !registered {
					errMsg = "env preset registration failed"
				} else {
					ok = true
				}
			}

		default:
			loaded, err := r.worker.LoadPlugin(ctx, key)
			if err != nil {
				errMsg = err.Error()
			} else if !loaded {
				errMsg = "bundle load failed"
			} else {
				ok = true
			}
		}
		r.postAsync(cmdPluginLoadDone{key: key, ok: ok, errMsg: errMsg})
	}()
}

func (r *Runner) applyPluginLoadDone(key string, ok bool, errMsg string) {
	p := r.state.Plugin(key)
	if p == nil {
		return
	}
	p.IsLoading = false

	m := r.machines[key]
	if ok {
		p.IsLoaded = true
		if err := m.TransitionIfCurrentState(
			finitestate.PluginLoading, finitestate.PluginLoaded,
		); err != nil {
			r.logger.Debug("plugin machine already left loading", "key", key, "error", err)
		}
		r.logger.Debug("plugin loaded", "key", key)
		if p.IsEnabled {
			// Loads end with an immediate recompile; no debounce.
			r.dispatchCompile()
		}
	} else {
		p.DidError = true
		p.ErrorMessage = errMsg
		if err := m.TransitionIfCurrentState(
			finitestate.PluginLoading, finitestate.PluginLoadError,
		); err != nil {
			r.logger.Debug("plugin machine already left loading", "key", key, "error", err)
		}
		r.logger.Warn("plugin load failed", "key", key, "error", errMsg)
	}

	r.broadcast()
}

func (r *Runner) applySetEnv(env session.EnvConfig) {
	p := r.state.Plugin(registry.EnvPresetKey)
	env.Enabled = p != nil && p.IsEnabled
	r.state.Env = env
	r.persist()
	r.scheduleCompile()
	r.broadcast()
}

func (r *Runner) applySetOptions(opts Options) {
	if opts.ShowSidebar != nil {
		r.state.ShowSidebar = *opts.ShowSidebar
	}
	if opts.ShowEnvPanel != nil {
		r.state.ShowEnvPanel = *opts.ShowEnvPanel
	}
	if opts.LineWrap != nil {
		r.state.LineWrap = *opts.LineWrap
	}
	r.persist()
	r.broadcast()
}

func (r *Runner) applyImport(rec session.Record) error {
	if err := registry.Validate(rec.EnabledPresetKeys()); err != nil {
		return err
	}

	if r.debounceTimer != nil {
		r.debounceTimer.Stop()
		r.debounceTimer = nil
	}

	r.state = session.NewState(rec)
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
	r.persist()
	r.broadcast()
	return nil
}

// scheduleCompile coalesces bursts of changes into a single compile after
// the debounce interval of quiet.
func (r *Runner) scheduleCompile() {
	if r.debounceTimer != nil {
		r.debounceTimer.Stop()
	}
	r.debounceTimer = time.AfterFunc(r.debounceInterval, func() {
		r.postAsync(cmdDebounceFired{})
	})
}

// dispatchCompile sends the current code and settings to the worker. The
// sequence number lets stale responses from superseded dispatches be
// discarded on arrival.
func (r *Runner) dispatchCompile() {
	r.compileSeq++
	seq := r.compileSeq
	code := r.state.Code
	cfg := r.buildConfig()

	ctx := r.runCtx
	go func() {
		outcome, err := r.worker.Compile(ctx, code, cfg)
		if err != nil {
			r.logger.Debug("compile request abandoned", "seq", seq, "error", err)
			return
		}
		r.postAsync(cmdCompileDone{seq: seq, outcome: outcome})
	}()
}

func (r *Runner) applyCompileDone(seq uint64, outcome compiler.Outcome) {
	if seq != r.compileSeq {
		r.logger.Debug("discarding stale compile result", "seq", seq, "latest", r.compileSeq)
		return
	}

	r.state.LastOutcome = &outcome
	r.state.EvalError = ""
	r.state.ConsoleLog = nil

	if r.state.Evaluate && !outcome.Failed() && r.sandbox.PolyfillLoaded() {
		lines, err := r.sandbox.Evaluate(outcome.Compiled)
		r.state.ConsoleLog = lines
		if err != nil {
			r.state.EvalError = err.Error()
		}
	}

	r.broadcast()
}

// buildConfig projects the session into a compile request. Only toggles
// whose bundles have finished loading participate.
func (r *Runner) buildConfig() compiler.Config {
	keys := make([]string, 0, 4)
	for _, d := range registry.ByCategory(registry.CategoryPresets) {
		keys = append(keys, d.Key)
	}
	for _, d := range registry.ByCategory(registry.CategoryPlugins) {
		keys = append(keys, d.Key)
	}

	env := r.state.Env
	envPlugin := r.state.Plugin(registry.EnvPresetKey)
	env.Enabled = envPlugin != nil && envPlugin.IsEnabled && envPlugin.IsLoaded

	return compiler.Config{
		Presets:   r.state.LoadedKeys(keys),
		Env:       env,
		Evaluate:  r.state.Evaluate,
		SourceMap: true,
	}
}

func (r *Runner) persist() {
	if r.store == nil {
		return
	}
	if err := r.store.Save(r.state.ToRecord()); err != nil {
		r.logger.Warn("failed to persist session", "error", err)
	}
}

// broadcast fans a snapshot out to watchers. A full watcher buffer means
// that watcher skips this snapshot.
func (r *Runner) broadcast() {
	if len(r.subscribers) == 0 {
		return
	}
	snap := r.state.Clone()
	for _, ch := range r.subscribers {
		select {
		case ch <- snap:
		default:
			// Evict the unread older snapshot so the watcher always sees
			// the most recent state next.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
