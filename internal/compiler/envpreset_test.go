package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passNamesOf(passes []pass) []string {
	names := make([]string, 0, len(passes))
	for _, p := range passes {
		names = append(names, p.name)
	}
	return names
}

func TestResolveEnvPasses(t *testing.T) {
	t.Parallel()

	t.Run("no targets selects every pass", func(t *testing.T) {
		passes, debug := resolveEnvPasses(&EnvOptions{})
		assert.Len(t, passes, len(envFeatures))
		assert.Contains(t, debug, "all platforms")
	})

	t.Run("nil options behave like no targets", func(t *testing.T) {
		passes, _ := resolveEnvPasses(nil)
		assert.Len(t, passes, len(envFeatures))
	})

	t.Run("ie 11 needs everything", func(t *testing.T) {
		passes, debug := resolveEnvPasses(&EnvOptions{
			Targets: Targets{Browsers: []string{"ie 11"}},
		})
		names := passNamesOf(passes)
		assert.Contains(t, names, "transform-arrow-functions")
		assert.Contains(t, names, "transform-block-scoping")
		assert.Contains(t, names, "transform-template-literals")
		assert.Contains(t, debug, "ie 11")
	})

	t.Run("modern chrome needs nothing", func(t *testing.T) {
		passes, debug := resolveEnvPasses(&EnvOptions{
			Targets: Targets{Browsers: []string{"chrome 60"}},
		})
		assert.Empty(t, passes)
		assert.Contains(t, debug, "natively")
	})

	t.Run("oldest platform wins across multiple targets", func(t *testing.T) {
		passes, _ := resolveEnvPasses(&EnvOptions{
			Targets: Targets{Browsers: []string{"chrome 60", "firefox 30"}},
		})
		names := passNamesOf(passes)
		// firefox 30 predates template literals but not arrows.
		assert.Contains(t, names, "transform-template-literals")
		assert.NotContains(t, names, "transform-arrow-functions")
	})

	t.Run("node target", func(t *testing.T) {
		passes, _ := resolveEnvPasses(&EnvOptions{
			Targets: Targets{Node: "4"},
		})
		names := passNamesOf(passes)
		assert.Contains(t, names, "transform-block-scoping")
		assert.NotContains(t, names, "transform-template-literals")
	})

	t.Run("unparsable entries are skipped", func(t *testing.T) {
		passes, _ := resolveEnvPasses(&EnvOptions{
			Targets: Targets{Browsers: []string{"last 2 versions", "chrome 60"}},
		})
		assert.Empty(t, passes)
	})

	t.Run("useBuiltIns appends the inject pass", func(t *testing.T) {
		passes, debug := resolveEnvPasses(&EnvOptions{
			Targets:     Targets{Browsers: []string{"chrome 60"}},
			UseBuiltIns: true,
		})
		require.Len(t, passes, 1)
		assert.Equal(t, "inject-built-ins", passes[0].name)
		assert.Contains(t, debug, "useBuiltIns: true")
	})
}

func TestParseVersion(t *testing.T) {
	t.Parallel()

	v, ok := parseVersion("10.13")
	require.True(t, ok)
	assert.Equal(t, ver(10, 13), v)

	v, ok = parseVersion("11")
	require.True(t, ok)
	assert.Equal(t, ver(11, 0), v)

	_, ok = parseVersion("stable")
	assert.False(t, ok)
}

func TestVersionAtLeast(t *testing.T) {
	t.Parallel()

	assert.True(t, ver(10, 1).atLeast(ver(10, 1)))
	assert.True(t, ver(10, 2).atLeast(ver(10, 1)))
	assert.True(t, ver(11, 0).atLeast(ver(10, 9)))
	assert.False(t, ver(9, 9).atLeast(ver(10, 0)))
}
