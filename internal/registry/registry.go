// Package registry holds the static catalog of presets, plugins, the runtime
// polyfill, and the env preset available to a playground session. The catalog
// is fixed at startup; session state is always keyed against it so unknown
// keys cannot enter the system.
package registry

import "fmt"

// Category groups descriptors by the role they play in a session.
type Category string

const (
	CategoryPresets Category = "presets"
	CategoryPlugins Category = "plugins"
	CategoryRuntime Category = "runtime"
	CategoryEnv     Category = "env"
)

// Descriptor identifies a single preset or plugin.
type Descriptor struct {
	// Key is the stable identifier used in persisted records and URLs.
	Key string

	// Label is the human-readable name.
	Label string

	// EnabledByDefault controls the initial toggle state of a fresh session.
	EnabledByDefault bool

	// RequiresLoad marks descriptors whose bundle must be loaded into the
	// compile worker before first use.
	RequiresLoad bool
}

// EnvPresetKey is the key of the environment-targeting preset.
const EnvPresetKey = "env"

// RuntimePolyfillKey is the key of the polyfill bundle loaded into the
// evaluation sandbox, never into the compile worker.
const RuntimePolyfillKey = "runtime-polyfill"

var presets = []Descriptor{
	{Key: "es2015", Label: "ES2015", EnabledByDefault: true, RequiresLoad: true},
	{Key: "es2016", Label: "ES2016", RequiresLoad: true},
}

var plugins = []Descriptor{
	{Key: "minify", Label: "Minify", RequiresLoad: true},
}

var runtime = []Descriptor{
	{Key: RuntimePolyfillKey, Label: "Runtime Polyfill", RequiresLoad: true},
}

var env = []Descriptor{
	{Key: EnvPresetKey, Label: "Env Preset", RequiresLoad: true},
}

// ByCategory returns the fixed, ordered descriptor list for a category. The
// returned slice is a copy; callers may not mutate the catalog.
func ByCategory(c Category) []Descriptor {
	var src []Descriptor
	switch c {
	case CategoryPresets:
		src = presets
	case CategoryPlugins:
		src = plugins
	case CategoryRuntime:
		src = runtime
	case CategoryEnv:
		src = env
	}
	out := make([]Descriptor, len(src))
	copy(out, src)
	return out
}

// All returns every descriptor across all categories, in catalog order.
func All() []Descriptor {
	out := make([]Descriptor, 0, len(presets)+len(plugins)+len(runtime)+len(env))
	out = append(out, presets...)
	out = append(out, plugins...)
	out = append(out, runtime...)
	out = append(out, env...)
	return out
}

// Lookup finds a descriptor by key across all categories.
func Lookup(key string) (Descriptor, bool) {
	for _, d := range All() {
		if d.Key == key {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Keys returns every known key in catalog order.
func Keys() []string {
	all := All()
	keys := make([]string, 0, len(all))
	for _, d := range all {
		keys = append(keys, d.Key)
	}
	return keys
}

// Validate rejects any key that is not part of the catalog.
func Validate(keys []string) error {
	for _, k := range keys {
		if _, ok := Lookup(k); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownKey, k)
		}
	}
	return nil
}
