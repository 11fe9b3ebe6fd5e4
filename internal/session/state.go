// Package session defines the playground session data model: per-plugin
// runtime state, environment-target settings, the session aggregate, and the
// flat record shape used for persistence and shareable URLs.
package session

import "github.com/replbox/replbox/internal/compiler"

// PluginState is the runtime status of a single preset or plugin within a
// session. IsLoaded implies not IsLoading; a plugin moves from loading to
// exactly one of loaded or errored per load attempt.
type PluginState struct {
	Key          string
	IsEnabled    bool
	IsLoading    bool
	IsLoaded     bool
	DidError     bool
	ErrorMessage string
}

// EnvConfig holds the environment-targeting preset settings. It is a plain
// value; any change replaces the whole struct. The compiler package owns the
// definition since compile requests carry it across the worker boundary.
type EnvConfig = compiler.EnvConfig

// State is the session aggregate. It is owned by the orchestrator run loop;
// nothing else mutates it.
type State struct {
	Plugins map[string]*PluginState
	Env     EnvConfig

	Code     string
	Evaluate bool

	LastOutcome *compiler.Outcome
	EvalError   string
	ConsoleLog  []string

	// UI flags, persisted so a restored session looks the same.
	ShowSidebar  bool
	ShowEnvPanel bool
	LineWrap     bool
}

// Clone returns a deep copy safe to hand outside the run loop.
func (s *State) Clone() *State {
	out := *s
	out.Plugins = make(map[string]*PluginState, len(s.Plugins))
	for k, p := range s.Plugins {
		cp := *p
		out.Plugins[k] = &cp
	}
	if s.LastOutcome != nil {
		oc := *s.LastOutcome
		oc.Logs = append([]string(nil), s.LastOutcome.Logs...)
		out.LastOutcome = &oc
	}
	out.ConsoleLog = append([]string(nil), s.ConsoleLog...)
	return &out
}

// Plugin returns the state entry for a key, or nil for unknown keys.
func (s *State) Plugin(key string) *PluginState {
	return s.Plugins[key]
}

// EnabledKeys returns the enabled subset of the given keys, preserving order.
func (s *State) EnabledKeys(keys []string) []string {
	var out []string
	for _, k := range keys {
		if p := s.Plugins[k]; p != nil && p.IsEnabled {
			out = append(out, k)
		}
	}
	return out
}

// LoadedKeys returns the subset of keys that are both enabled and loaded,
// preserving order. Compilation uses only this subset.
func (s *State) LoadedKeys(keys []string) []string {
	var out []string
	for _, k := range keys {
		if p := s.Plugins[k]; p != nil && p.IsEnabled && p.IsLoaded {
			out = append(out, k)
		}
	}
	return out
}
