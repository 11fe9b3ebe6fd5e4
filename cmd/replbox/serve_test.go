package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/replbox/replbox/internal/server/runnables/orchestrator"
)

func TestParseShare(t *testing.T) {
	t.Parallel()

	t.Run("bare query", func(t *testing.T) {
		t.Parallel()
		q, err := parseShare("presets=es2015&minify=true")
		require.NoError(t, err)
		assert.Equal(t, "es2015", q.Get("presets"))
		assert.Equal(t, "true", q.Get("minify"))
	})

	t.Run("leading question mark", func(t *testing.T) {
		t.Parallel()
		q, err := parseShare("?presets=es2016")
		require.NoError(t, err)
		assert.Equal(t, "es2016", q.Get("presets"))
	})

	t.Run("full URL", func(t *testing.T) {
		t.Parallel()
		q, err := parseShare("http://localhost:8787/?code=var+x%3B&presets=es2015")
		require.NoError(t, err)
		assert.Equal(t, "var x;", q.Get("code"))
		assert.Equal(t, "es2015", q.Get("presets"))
	})
}

func TestServeCommandFlags(t *testing.T) {
	t.Parallel()

	flags := make(map[string]cli.Flag, len(serveCmd.Flags))
	for _, f := range serveCmd.Flags {
		flags[f.Names()[0]] = f
	}

	listen, ok := flags["listen"].(*cli.StringFlag)
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1:8787", listen.Value)

	debounce, ok := flags["debounce"].(*cli.DurationFlag)
	require.True(t, ok)
	assert.Equal(t, orchestrator.DefaultDebounceInterval, debounce.Value)

	for _, name := range []string{"session-file", "share", "log-level", "log-format", "log-output"} {
		assert.Contains(t, flags, name)
	}
}

func TestDefaultSessionPath(t *testing.T) {
	path, err := defaultSessionPath()
	require.NoError(t, err)
	assert.Contains(t, path, "replbox")
	assert.Contains(t, path, "session.toml")
}
