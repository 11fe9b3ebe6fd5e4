package finitestate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPluginMachine(t *testing.T) {
	t.Parallel()

	t.Run("disabled initial state", func(t *testing.T) {
		m, err := NewPluginMachine(nil, false)
		require.NoError(t, err)
		assert.Equal(t, PluginDisabled, m.GetState())
	})

	t.Run("enabled starts unloaded", func(t *testing.T) {
		m, err := NewPluginMachine(nil, true)
		require.NoError(t, err)
		assert.Equal(t, PluginEnabledUnloaded, m.GetState())
	})
}

func TestPluginTransitions(t *testing.T) {
	t.Parallel()

	t.Run("happy path load", func(t *testing.T) {
		m, err := NewPluginMachine(nil, true)
		require.NoError(t, err)

		require.NoError(t, m.Transition(PluginLoading))
		require.NoError(t, m.Transition(PluginLoaded))
	})

	t.Run("load failure is sticky until retoggled", func(t *testing.T) {
		m, err := NewPluginMachine(nil, true)
		require.NoError(t, err)

		require.NoError(t, m.Transition(PluginLoading))
		require.NoError(t, m.Transition(PluginLoadError))

		// Only the toggle leaves load-error.
		assert.Error(t, m.Transition(PluginLoading))
		require.NoError(t, m.Transition(PluginDisabled))
		require.NoError(t, m.Transition(PluginEnabledUnloaded))
	})

	t.Run("loaded plugin retoggles without reload", func(t *testing.T) {
		m, err := NewPluginMachine(nil, true)
		require.NoError(t, err)

		require.NoError(t, m.Transition(PluginLoading))
		require.NoError(t, m.Transition(PluginLoaded))
		require.NoError(t, m.Transition(PluginDisabled))
		require.NoError(t, m.Transition(PluginLoaded))
	})

	t.Run("loading cannot complete twice", func(t *testing.T) {
		m, err := NewPluginMachine(nil, true)
		require.NoError(t, err)

		require.NoError(t, m.Transition(PluginLoading))
		require.NoError(t, m.Transition(PluginLoaded))
		assert.Error(t, m.Transition(PluginLoadError))
	})
}
