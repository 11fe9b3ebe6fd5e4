package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// feature is one language construct the env preset can compile away,
// together with the minimum platform versions that support it natively.
// A zero entry means the platform never supports it.
type feature struct {
	passName string
	pass     func() pass
	support  map[string]version
}

type version struct {
	major, minor int
}

func (v version) atLeast(o version) bool {
	if v.major != o.major {
		return v.major > o.major
	}
	return v.minor >= o.minor
}

func (v version) String() string {
	if v.minor == 0 {
		return strconv.Itoa(v.major)
	}
	return fmt.Sprintf("%d.%d", v.major, v.minor)
}

func ver(major, minor int) version { return version{major, minor} }

// The support matrix is intentionally small: only platforms a playground
// user plausibly declares, only features this engine can transform.
var envFeatures = []feature{
	{
		passName: "transform-template-literals",
		pass:     templateLiteralsPass,
		support: map[string]version{
			"chrome": ver(41, 0), "edge": ver(12, 0), "firefox": ver(34, 0),
			"safari": ver(9, 0), "opera": ver(28, 0),
			"node": ver(4, 0), "electron": ver(0, 22),
		},
	},
	{
		passName: "transform-block-scoping",
		pass:     blockScopingPass,
		support: map[string]version{
			"chrome": ver(49, 0), "edge": ver(14, 0), "firefox": ver(51, 0),
			"safari": ver(10, 0), "opera": ver(36, 0),
			"node": ver(6, 0), "electron": ver(1, 1),
		},
	},
	{
		passName: "transform-arrow-functions",
		pass:     arrowFunctionsPass,
		support: map[string]version{
			"chrome": ver(45, 0), "edge": ver(12, 0), "firefox": ver(22, 0),
			"safari": ver(10, 0), "opera": ver(32, 0),
			"node": ver(4, 0), "electron": ver(0, 36),
		},
	},
	{
		passName: "transform-exponentiation-operator",
		pass:     exponentiationPass,
		support: map[string]version{
			"chrome": ver(52, 0), "edge": ver(14, 0), "firefox": ver(52, 0),
			"safari": ver(10, 1), "opera": ver(39, 0),
			"node": ver(7, 0), "electron": ver(1, 3),
		},
	},
}

// resolveEnvPasses picks the pass set needed for the declared targets and
// renders the resolution diagnostics. No targets selects every pass, the
// same way an empty browserslist compiles for the lowest denominator.
func resolveEnvPasses(opts *EnvOptions) ([]pass, string) {
	var targets Targets
	useBuiltIns := false
	if opts != nil {
		targets = opts.Targets
		useBuiltIns = opts.UseBuiltIns
	}

	platforms := parseTargets(targets)

	var passes []pass
	var passNames []string
	for _, f := range envFeatures {
		if featureNeeded(f, platforms) {
			passes = append(passes, f.pass())
			passNames = append(passNames, f.passName)
		}
	}

	if useBuiltIns {
		passes = append(passes, builtInsPass())
	}

	return passes, renderEnvDebug(platforms, passNames, useBuiltIns)
}

type platform struct {
	name    string
	version version
	raw     string
}

// parseTargets normalizes the targets into platform entries. Browser
// entries use the "name version" form; anything unparsable is skipped.
func parseTargets(t Targets) []platform {
	var out []platform
	for _, b := range t.Browsers {
		fields := strings.Fields(strings.ToLower(b))
		if len(fields) != 2 {
			continue
		}
		v, ok := parseVersion(fields[1])
		if !ok {
			continue
		}
		out = append(out, platform{name: fields[0], version: v, raw: b})
	}
	if t.Node != "" {
		if v, ok := parseVersion(t.Node); ok {
			out = append(out, platform{name: "node", version: v, raw: "node " + t.Node})
		}
	}
	if t.Electron != "" {
		if v, ok := parseVersion(t.Electron); ok {
			out = append(out, platform{name: "electron", version: v, raw: "electron " + t.Electron})
		}
	}
	return out
}

func parseVersion(s string) (version, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), ".", 3)
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return version{}, false
	}
	v := version{major: major}
	if len(parts) > 1 {
		if minor, err := strconv.Atoi(parts[1]); err == nil {
			v.minor = minor
		}
	}
	return v, true
}

// featureNeeded reports whether any declared platform lacks native support.
// With no platforms at all, every feature is needed.
func featureNeeded(f feature, platforms []platform) bool {
	if len(platforms) == 0 {
		return true
	}
	for _, p := range platforms {
		minimum, supported := f.support[p.name]
		if !supported || !p.version.atLeast(minimum) {
			return true
		}
	}
	return false
}

func renderEnvDebug(platforms []platform, passNames []string, useBuiltIns bool) string {
	var b strings.Builder
	b.WriteString("env preset targets:\n")
	if len(platforms) == 0 {
		b.WriteString("  (none declared, compiling for all platforms)\n")
	}
	for _, p := range platforms {
		fmt.Fprintf(&b, "  %s\n", p.raw)
	}
	b.WriteString("using passes:\n")
	if len(passNames) == 0 {
		b.WriteString("  (none, all targets support the input natively)\n")
	}
	for _, name := range passNames {
		fmt.Fprintf(&b, "  %s\n", name)
	}
	fmt.Fprintf(&b, "useBuiltIns: %t\n", useBuiltIns)
	return b.String()
}

// builtInsPass prepends the polyfill import. Kept last in the env pipeline
// so earlier passes never see the injected line.
func builtInsPass() pass {
	return pass{
		name: "inject-built-ins",
		apply: func(src, _ string) (string, error) {
			return `require("core-js/stable");` + "\n" + src, nil
		},
	}
}
