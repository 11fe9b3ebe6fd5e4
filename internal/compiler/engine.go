package compiler

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dop251/goja/parser"
)

// Bundle keys the engine knows how to load. These mirror the registry
// catalog; the engine is the authority on what a key actually does.
const (
	EnvPresetKey = "env"
)

// Engine is the shipped Transformer. Preset and plugin bundles are prepared
// by LoadBundle before first use, mirroring the load step a remote compiler
// would need; the env preset additionally requires RegisterEnvPreset after
// its own load.
type Engine struct {
	logger *slog.Logger

	mu            sync.RWMutex
	loaded        map[string][]pass
	envRegistered bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogHandler sets a custom slog handler for the Engine.
func WithLogHandler(handler slog.Handler) EngineOption {
	return func(e *Engine) {
		if handler != nil {
			e.logger = slog.New(handler).WithGroup("compiler.Engine")
		}
	}
}

// NewEngine creates an Engine with no bundles loaded.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		logger: slog.Default().WithGroup("compiler.Engine"),
		loaded: make(map[string][]pass),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LoadBundle prepares the named preset or plugin for use. Loading is
// idempotent; an unknown key is an error.
func (e *Engine) LoadBundle(key string) error {
	passes, err := bundlePasses(key)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.loaded[key] = passes
	e.logger.Debug("bundle loaded", "key", key, "passes", len(passes))
	return nil
}

// IsLoaded reports whether a bundle has been loaded.
func (e *Engine) IsLoaded(key string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.loaded[key]
	return ok
}

// RegisterEnvPreset arms the target resolver. It must be called after the
// env preset bundle itself has been loaded and before any transform that
// uses it.
func (e *Engine) RegisterEnvPreset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.loaded[EnvPresetKey]; !ok {
		return ErrEnvPresetNotLoaded
	}
	e.envRegistered = true
	return nil
}

// Transform implements Transformer. The preset list is applied in order;
// every entry must have been loaded, and the env entry resolves its pass set
// from the declared targets. The transformed source is reparsed after the
// final pass to produce the AST, so the returned tree always describes the
// output code.
func (e *Engine) Transform(code string, opts TransformOptions) (TransformResult, error) {
	filename := opts.Filename
	if filename == "" {
		filename = Filename
	}

	passes, err := e.resolvePasses(opts)
	if err != nil {
		return TransformResult{}, err
	}

	// Parse once up front so syntax errors surface even with no passes.
	if _, err := parser.ParseFile(nil, filename, code, 0); err != nil {
		return TransformResult{}, err
	}

	out := code
	for _, p := range passes {
		out, err = p.apply(out, filename)
		if err != nil {
			return TransformResult{}, fmt.Errorf("%s: %w", p.name, err)
		}
	}

	prog, err := parser.ParseFile(nil, filename, out, 0)
	if err != nil {
		return TransformResult{}, fmt.Errorf("transform produced unparsable output: %w", err)
	}

	result := TransformResult{
		Code: out,
		AST:  astToTree(prog, out),
	}
	if opts.SourceMap {
		result.Map = buildSourceMap(filename, code, out)
	}
	return result, nil
}

// resolvePasses flattens the preset list into the ordered pass pipeline.
func (e *Engine) resolvePasses(opts TransformOptions) ([]pass, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var pipeline []pass
	for _, entry := range opts.Presets {
		loaded, ok := e.loaded[entry.Key]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrBundleNotLoaded, entry.Key)
		}

		if entry.Key == EnvPresetKey {
			if !e.envRegistered {
				return nil, ErrEnvPresetNotRegistered
			}
			envPasses, debug := resolveEnvPasses(entry.Env)
			if opts.OnEnvDebug != nil {
				opts.OnEnvDebug(debug)
			}
			pipeline = append(pipeline, envPasses...)
			continue
		}

		pipeline = append(pipeline, loaded...)
	}
	return pipeline, nil
}

// bundlePasses maps a bundle key to its pass list. The env preset loads
// empty; its passes are resolved per call from the targets.
func bundlePasses(key string) ([]pass, error) {
	switch key {
	case "es2015":
		return []pass{
			templateLiteralsPass(),
			blockScopingPass(),
			arrowFunctionsPass(),
		}, nil
	case "es2016":
		return []pass{exponentiationPass()}, nil
	case "minify":
		return []pass{minifyPass()}, nil
	case EnvPresetKey:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBundle, key)
	}
}
