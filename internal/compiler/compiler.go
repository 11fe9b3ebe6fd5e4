// Package compiler wraps the source-to-source transform engine behind a
// single compile entry point. A compile call resolves the requested preset
// and plugin bundles (including the environment-targeting preset), invokes
// the transform engine exactly once, and normalizes the result into an
// Outcome that is either a success payload or a failure payload, never both.
package compiler

// Filename is the fixed sentinel filename used for every transform. The
// playground has no real files; the name only shows up in parse errors and
// source maps.
const Filename = "repl.js"

// EnvConfig holds the environment-targeting preset settings carried on a
// compile request.
type EnvConfig struct {
	Enabled           bool   `json:"enabled"`
	Browsers          string `json:"browsers"`
	IsNodeEnabled     bool   `json:"isNodeEnabled"`
	NodeVersion       string `json:"nodeVersion"`
	IsElectronEnabled bool   `json:"isElectronEnabled"`
	ElectronVersion   string `json:"electronVersion"`
	UseBuiltIns       bool   `json:"useBuiltIns"`
	Debug             bool   `json:"debug"`
}

// Config is a fully resolved compile request: the ordered list of enabled
// and loaded preset/plugin keys plus the call flags. It is built fresh for
// every compile and never mutated afterwards.
type Config struct {
	Presets   []string  `json:"presets"`
	Env       EnvConfig `json:"env"`
	Evaluate  bool      `json:"evaluate"`
	SourceMap bool      `json:"sourceMap"`
}

// Targets names the platforms the env preset compiles for. Empty targets
// mean "everything", which selects the full pass set.
type Targets struct {
	Browsers []string `json:"browsers,omitempty"`
	Node     string   `json:"node,omitempty"`
	Electron string   `json:"electron,omitempty"`
}

// IsEmpty reports whether no target platform was declared.
func (t Targets) IsEmpty() bool {
	return len(t.Browsers) == 0 && t.Node == "" && t.Electron == ""
}

// EnvOptions are the per-call options attached to the env preset entry.
type EnvOptions struct {
	Targets     Targets
	UseBuiltIns bool
}

// PresetEntry is one element of the ordered preset list handed to the
// transform engine. Env is set only on the environment-targeting entry.
type PresetEntry struct {
	Key string
	Env *EnvOptions
}

// TransformOptions parameterize a single transform call.
type TransformOptions struct {
	Presets   []PresetEntry
	SourceMap bool
	Filename  string

	// OnEnvDebug, when set, receives the env preset resolution diagnostics.
	// It fires synchronously during Transform, before the call returns.
	OnEnvDebug func(info string)
}

// TransformResult is the raw engine output before normalization.
type TransformResult struct {
	Code string
	AST  *ASTNode
	Map  *SourceMap
}

// Transformer is the external compiler boundary. Implementations must be
// safe for concurrent Transform calls.
type Transformer interface {
	Transform(code string, opts TransformOptions) (TransformResult, error)
}

// Outcome is the normalized result of one compile call. CompileError is
// empty on success and the only populated field (besides Logs) on failure.
type Outcome struct {
	Compiled        string  `json:"compiled"`
	AST             string  `json:"ast"`
	SourceMap       string  `json:"sourceMap,omitempty"`
	TransformTimeMs float64 `json:"transformTimeMs"`
	CompileError    string  `json:"compileError,omitempty"`
	EnvPresetDebug  string  `json:"envPresetDebug,omitempty"`

	// Logs are diagnostics captured during the compile, e.g. a source map
	// that failed to serialize.
	Logs []string `json:"logs,omitempty"`
}

// Failed reports whether the outcome is a failure payload.
func (o *Outcome) Failed() bool {
	return o.CompileError != ""
}
