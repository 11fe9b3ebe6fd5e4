package session

import (
	"github.com/replbox/replbox/internal/registry"
)

// StateFromDescriptor builds the initial runtime state for a descriptor. A
// non-nil override wins over the descriptor's default toggle.
func StateFromDescriptor(d registry.Descriptor, override *bool) *PluginState {
	enabled := d.EnabledByDefault
	if override != nil {
		enabled = *override
	}
	return &PluginState{
		Key:       d.Key,
		IsEnabled: enabled,
	}
}

// StatesFromDescriptors builds the per-key state map for a descriptor list,
// applying per-key overrides from persisted data. Override keys that are not
// in the descriptor list are ignored.
func StatesFromDescriptors(
	ds []registry.Descriptor,
	overrides map[string]bool,
) map[string]*PluginState {
	out := make(map[string]*PluginState, len(ds))
	for _, d := range ds {
		var override *bool
		if v, ok := overrides[d.Key]; ok {
			override = &v
		}
		out[d.Key] = StateFromDescriptor(d, override)
	}
	return out
}

// NewState builds a session aggregate from a persisted record, validated
// against the registry catalog. Unknown keys in the record are dropped.
func NewState(rec Record) *State {
	overrides := make(map[string]bool)
	for _, d := range registry.All() {
		overrides[d.Key] = false
	}
	for _, key := range rec.EnabledPresetKeys() {
		if _, ok := registry.Lookup(key); ok {
			overrides[key] = true
		}
	}
	overrides["minify"] = rec.Minify
	overrides[registry.EnvPresetKey] = rec.IsEnvEnabled
	overrides[registry.RuntimePolyfillKey] = rec.Evaluate

	return &State{
		Plugins: StatesFromDescriptors(registry.All(), overrides),
		Env: EnvConfig{
			Enabled:           rec.IsEnvEnabled,
			Browsers:          rec.Browsers,
			IsNodeEnabled:     rec.IsNodeEnabled,
			NodeVersion:       rec.NodeVersion,
			IsElectronEnabled: rec.IsElectronEnabled,
			ElectronVersion:   rec.ElectronVersion,
			UseBuiltIns:       rec.UseBuiltIns,
			Debug:             rec.Debug,
		},
		Code:         rec.Code,
		Evaluate:     rec.Evaluate,
		ShowSidebar:  rec.ShowSidebar,
		ShowEnvPanel: rec.ShowEnvPanel,
		LineWrap:     rec.LineWrap,
	}
}

// ToRecord flattens the persisted projection of a session. Loading and
// loaded flags are session-only and never serialized.
func (s *State) ToRecord() Record {
	rec := Record{
		Code:              s.Code,
		Presets:           joinKeys(s.EnabledKeys(presetKeys())),
		Minify:            s.pluginEnabled("minify"),
		Evaluate:          s.Evaluate,
		Debug:             s.Env.Debug,
		Browsers:          s.Env.Browsers,
		IsEnvEnabled:      s.Env.Enabled,
		IsNodeEnabled:     s.Env.IsNodeEnabled,
		NodeVersion:       s.Env.NodeVersion,
		IsElectronEnabled: s.Env.IsElectronEnabled,
		ElectronVersion:   s.Env.ElectronVersion,
		UseBuiltIns:       s.Env.UseBuiltIns,
		ShowSidebar:       s.ShowSidebar,
		ShowEnvPanel:      s.ShowEnvPanel,
		LineWrap:          s.LineWrap,
	}
	return rec
}

func (s *State) pluginEnabled(key string) bool {
	p := s.Plugins[key]
	return p != nil && p.IsEnabled
}

func presetKeys() []string {
	ds := registry.ByCategory(registry.CategoryPresets)
	keys := make([]string, 0, len(ds))
	for _, d := range ds {
		keys = append(keys, d.Key)
	}
	return keys
}
