// Package sandbox provides the isolated JavaScript context compiled code is
// evaluated in. The sandbox shares globals across evaluations within a
// session (so a polyfill loaded once stays loaded) but is never shared with
// the compile worker.
package sandbox

import (
	_ "embed"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dop251/goja"
)

//go:embed assets/polyfill.js
var polyfillSource string

// Sandbox owns one goja runtime. Evaluate runs synchronously on the
// caller's goroutine with no timeout: runaway user code blocks the caller,
// which is the accepted cost of sharing the context's globals.
type Sandbox struct {
	logger *slog.Logger

	mu             sync.Mutex
	vm             *goja.Runtime
	consoleLines   []string
	polyfillLoaded bool
}

// Option configures a Sandbox.
type Option func(*Sandbox)

// WithLogHandler sets a custom slog handler for the Sandbox.
func WithLogHandler(handler slog.Handler) Option {
	return func(s *Sandbox) {
		if handler != nil {
			s.logger = slog.New(handler).WithGroup("sandbox")
		}
	}
}

// New creates a sandbox with a fresh runtime and a console shim installed.
func New(opts ...Option) (*Sandbox, error) {
	s := &Sandbox{
		logger: slog.Default().WithGroup("sandbox"),
	}
	for _, opt := range opts {
		opt(s)
	}

	vm := goja.New()
	console := vm.NewObject()
	logFn := func(call goja.FunctionCall) goja.Value {
		line := formatConsoleArgs(call.Arguments)
		s.consoleLines = append(s.consoleLines, line)
		s.logger.Debug("console", "line", line)
		return goja.Undefined()
	}
	for _, name := range []string{"log", "info", "warn", "error"} {
		if err := console.Set(name, logFn); err != nil {
			return nil, fmt.Errorf("failed to install console.%s: %w", name, err)
		}
	}
	if err := vm.Set("console", console); err != nil {
		return nil, fmt.Errorf("failed to install console: %w", err)
	}

	s.vm = vm
	return s, nil
}

// LoadPolyfill installs the embedded runtime polyfill bundle. Loading is
// lazy and idempotent; the bundle lands in this context's globals, never in
// the compile worker.
func (s *Sandbox) LoadPolyfill() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.polyfillLoaded {
		return nil
	}
	if _, err := s.vm.RunScript("polyfill.js", polyfillSource); err != nil {
		return fmt.Errorf("failed to load runtime polyfill: %w", err)
	}
	s.polyfillLoaded = true
	s.logger.Debug("runtime polyfill loaded")
	return nil
}

// PolyfillLoaded reports whether the polyfill bundle has been installed.
func (s *Sandbox) PolyfillLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polyfillLoaded
}

// Evaluate runs compiled code in the sandbox and returns the console lines
// it produced. A thrown exception comes back as a non-nil error; globals
// already mutated by the failed run stay mutated, exactly as in a browser
// frame.
func (s *Sandbox) Evaluate(code string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.consoleLines = nil
	_, err := s.vm.RunScript("eval.js", code)
	lines := s.consoleLines
	s.consoleLines = nil
	if err != nil {
		return lines, fmt.Errorf("evaluation failed: %w", err)
	}
	return lines, nil
}

func formatConsoleArgs(args []goja.Value) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a.String()
	}
	return out
}
