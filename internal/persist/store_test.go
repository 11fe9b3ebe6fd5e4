package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replbox/replbox/internal/session"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "session.toml"))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store := tempStore(t)
	rec := session.Record{
		Code:         "const x = 1;",
		Presets:      "es2015,es2016",
		Minify:       true,
		Evaluate:     true,
		Browsers:     "chrome 60, firefox 52",
		IsEnvEnabled: true,
		NodeVersion:  "10.13",
		ShowSidebar:  true,
	}

	require.NoError(t, store.Save(rec))
	assert.Equal(t, rec, store.Load())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	store := tempStore(t)
	assert.Equal(t, session.DefaultRecord(), store.Load())
}

func TestLoadUnparseableFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.toml")
	require.NoError(t, os.WriteFile(path, []byte("this is { not toml"), 0o644))

	store := NewStore(path)
	assert.Equal(t, session.DefaultRecord(), store.Load())
}

func TestLoadSalvagesMistypedFields(t *testing.T) {
	t.Parallel()

	// code has the wrong type; presets and minify are fine.
	content := "code = 5\npresets = \"es2016\"\nminify = true\n"
	path := filepath.Join(t.TempDir(), "session.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	store := NewStore(path)
	rec := store.Load()
	assert.Equal(t, session.DefaultRecord().Code, rec.Code, "mistyped field keeps default")
	assert.Equal(t, "es2016", rec.Presets)
	assert.True(t, rec.Minify)
}

func TestSaveCreatesParentDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "session.toml")
	store := NewStore(path)

	require.NoError(t, store.Save(session.DefaultRecord()))
	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestSaveOverwritesAtomically(t *testing.T) {
	t.Parallel()

	store := tempStore(t)
	require.NoError(t, store.Save(session.Record{Code: "first"}))
	require.NoError(t, store.Save(session.Record{Code: "second"}))

	rec := store.Load()
	assert.Equal(t, "second", rec.Code)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(store.path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "session.toml", entries[0].Name())
}
