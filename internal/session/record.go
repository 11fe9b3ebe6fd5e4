package session

import "strings"

// Record is the flat key/value projection of a session that survives across
// runs. The same shape is written to the TOML session file and mirrored into
// shareable URL query parameters. All fields are optional on load; missing or
// malformed values fall back to defaults.
type Record struct {
	Code    string `toml:"code"`
	Presets string `toml:"presets"` // comma-joined enabled preset keys

	Minify bool `toml:"minify"`

	Evaluate bool `toml:"evaluate"`
	Debug    bool `toml:"debug"`

	Browsers          string `toml:"browsers"`
	IsEnvEnabled      bool   `toml:"env_enabled"`
	IsNodeEnabled     bool   `toml:"node_enabled"`
	NodeVersion       string `toml:"node_version"`
	IsElectronEnabled bool   `toml:"electron_enabled"`
	ElectronVersion   string `toml:"electron_version"`
	UseBuiltIns       bool   `toml:"use_built_ins"`

	ShowSidebar  bool `toml:"show_sidebar"`
	ShowEnvPanel bool `toml:"show_env_panel"`
	LineWrap     bool `toml:"line_wrap"`
}

// DefaultRecord is the session a first-time user sees.
func DefaultRecord() Record {
	return Record{
		Code:            "const greeting = name => `hello, ${name}`;\n",
		Presets:         "es2015",
		NodeVersion:     "10.13",
		ElectronVersion: "1.8",
		ShowSidebar:     true,
		LineWrap:        true,
	}
}

// EnabledPresetKeys parses the comma-joined preset list.
func (r Record) EnabledPresetKeys() []string {
	return splitKeys(r.Presets)
}

func joinKeys(keys []string) string {
	return strings.Join(keys, ",")
}

func splitKeys(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
