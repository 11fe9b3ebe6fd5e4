package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replbox/replbox/internal/compiler"
	"github.com/replbox/replbox/internal/registry"
	"github.com/replbox/replbox/internal/server/finitestate"
)

// startRunner boots a Runner and blocks until it reports running.
func startRunner(t *testing.T) (*Runner, context.CancelFunc) {
	t.Helper()

	runner, err := NewRunner()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runner.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("runner did not stop")
		}
	})

	require.Eventually(t, runner.IsRunning, 2*time.Second, 10*time.Millisecond)
	return runner, cancel
}

func TestNewRunner(t *testing.T) {
	t.Parallel()

	runner, err := NewRunner()
	require.NoError(t, err)
	assert.Equal(t, "worker.Runner", runner.String())
	assert.Equal(t, finitestate.StatusNew, runner.GetState())
	assert.False(t, runner.IsRunning())
}

func TestRunnerLifecycle(t *testing.T) {
	t.Parallel()

	runner, err := NewRunner()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- runner.Run(context.Background())
	}()

	require.Eventually(t, runner.IsRunning, 2*time.Second, 10*time.Millisecond)

	runner.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
	assert.Equal(t, finitestate.StatusStopped, runner.GetState())
}

func TestCompileThroughProxy(t *testing.T) {
	t.Parallel()

	runner, _ := startRunner(t)
	ctx := context.Background()

	ok, err := runner.LoadPlugin(ctx, "es2015")
	require.NoError(t, err)
	require.True(t, ok)

	outcome, err := runner.Compile(ctx, "const f = (a) => a + 1;", compiler.Config{
		Presets: []string{"es2015"},
	})
	require.NoError(t, err)
	require.False(t, outcome.Failed())
	assert.Contains(t, outcome.Compiled, "var f = function")
	assert.Greater(t, outcome.TransformTimeMs, 0.0)
}

func TestCompileSyntaxError(t *testing.T) {
	t.Parallel()

	runner, _ := startRunner(t)

	outcome, err := runner.Compile(context.Background(), "const = ;", compiler.Config{})
	require.NoError(t, err)
	assert.True(t, outcome.Failed())
	assert.NotEmpty(t, outcome.CompileError)
}

func TestLoadPluginUnknown(t *testing.T) {
	t.Parallel()

	runner, _ := startRunner(t)

	ok, err := runner.LoadPlugin(context.Background(), "no-such-plugin")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegisterEnvPresetRequiresBundle(t *testing.T) {
	t.Parallel()

	runner, _ := startRunner(t)
	ctx := context.Background()

	ok, err := runner.RegisterEnvPreset(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "registration must fail before the env bundle loads")

	ok, err = runner.LoadPlugin(ctx, registry.EnvPresetKey)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = runner.RegisterEnvPreset(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConcurrentCompiles(t *testing.T) {
	t.Parallel()

	runner, _ := startRunner(t)
	ctx := context.Background()

	ok, err := runner.LoadPlugin(ctx, "es2016")
	require.NoError(t, err)
	require.True(t, ok)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := runner.Compile(ctx, "var y = x ** 2;", compiler.Config{
				Presets: []string{"es2016"},
			})
			assert.NoError(t, err)
			assert.Contains(t, outcome.Compiled, "Math.pow")
		}()
	}
	wg.Wait()
}

func TestProxyRespectsContext(t *testing.T) {
	t.Parallel()

	// Never started, so the request channel has no consumer.
	runner, err := NewRunner()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = runner.Compile(ctx, "1 + 1", compiler.Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
