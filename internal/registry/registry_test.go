package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByCategory(t *testing.T) {
	t.Parallel()

	t.Run("presets are ordered and stable", func(t *testing.T) {
		ps := ByCategory(CategoryPresets)
		require.NotEmpty(t, ps)
		assert.Equal(t, "es2015", ps[0].Key)
		assert.True(t, ps[0].EnabledByDefault)

		// Mutating the returned slice must not affect the catalog.
		ps[0].Key = "mutated"
		assert.Equal(t, "es2015", ByCategory(CategoryPresets)[0].Key)
	})

	t.Run("unknown category returns empty", func(t *testing.T) {
		assert.Empty(t, ByCategory(Category("nope")))
	})
}

func TestLookup(t *testing.T) {
	t.Parallel()

	d, ok := Lookup(EnvPresetKey)
	require.True(t, ok)
	assert.Equal(t, EnvPresetKey, d.Key)
	assert.True(t, d.RequiresLoad)

	_, ok = Lookup("not-a-plugin")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Validate([]string{"es2015", "minify", RuntimePolyfillKey}))

	err := Validate([]string{"es2015", "bogus"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestKeysCoverAllCategories(t *testing.T) {
	t.Parallel()

	keys := Keys()
	assert.Contains(t, keys, "es2015")
	assert.Contains(t, keys, "minify")
	assert.Contains(t, keys, RuntimePolyfillKey)
	assert.Contains(t, keys, EnvPresetKey)
	assert.Len(t, keys, len(All()))
}
