package finitestate

import (
	"log/slog"

	"github.com/robbyt/go-fsm"
)

// Plugin load lifecycle states. Track one preset or plugin from the user
// toggle through the worker load round trip.
const (
	// PluginDisabled is the off position of the user toggle.
	PluginDisabled = "disabled"

	// PluginEnabledUnloaded means the toggle is on but the bundle has not
	// been loaded into the worker yet.
	PluginEnabledUnloaded = "enabled-unloaded"

	// PluginLoading means a load request is in flight.
	PluginLoading = "loading"

	// PluginLoaded means the bundle is ready to compile with.
	PluginLoaded = "loaded"

	// PluginLoadError means the load attempt failed. The plugin stays in
	// this state; there are no automatic retries.
	PluginLoadError = "load-error"
)

// PluginTransitions defines the valid plugin lifecycle transitions. A load
// attempt leaves loading exactly once, to loaded or load-error. A plugin
// that was loaded once never reloads: toggling moves it straight between
// disabled and loaded.
var PluginTransitions = map[string][]string{
	PluginDisabled:        {PluginEnabledUnloaded, PluginLoaded},
	PluginEnabledUnloaded: {PluginLoading, PluginDisabled},
	PluginLoading:         {PluginLoaded, PluginLoadError, PluginDisabled},
	PluginLoaded:          {PluginDisabled},
	PluginLoadError:       {PluginDisabled},
}

// NewPluginMachine creates a plugin lifecycle machine in the given initial
// toggle position.
func NewPluginMachine(handler slog.Handler, enabled bool) (Machine, error) {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	initial := PluginDisabled
	if enabled {
		initial = PluginEnabledUnloaded
	}
	return fsm.New(handler, initial, PluginTransitions)
}
