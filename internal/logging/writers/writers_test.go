package writers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWriterStandardStreams(t *testing.T) {
	t.Parallel()

	w, err := CreateWriter("")
	require.NoError(t, err)
	assert.Equal(t, os.Stderr, w)

	w, err = CreateWriter("stdout")
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, w)
}

func TestCreateWriterFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "replbox.log")
	w, err := CreateWriter(path)
	require.NoError(t, err)

	_, err = w.Write([]byte("line\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))
}

func TestCreateWriterRejectsURLs(t *testing.T) {
	t.Parallel()

	_, err := CreateWriter("https://example.com/log")
	require.Error(t, err)
}
