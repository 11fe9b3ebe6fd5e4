package compiler

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

// Compile runs a single transform for the given code and resolved config and
// normalizes the engine result. Errors from the engine are collapsed into
// the outcome's CompileError message without further classification; nothing
// here retries or panics.
//
// Two calls with identical inputs produce identical outcomes except for
// TransformTimeMs.
func Compile(code string, cfg Config, t Transformer, logger *slog.Logger) Outcome {
	if logger == nil {
		logger = slog.Default()
	}

	opts := TransformOptions{
		SourceMap: cfg.SourceMap,
		Filename:  Filename,
	}
	for _, key := range cfg.Presets {
		opts.Presets = append(opts.Presets, PresetEntry{Key: key})
	}

	var outcome Outcome
	if cfg.Env.Enabled {
		opts.Presets = append(opts.Presets, PresetEntry{
			Key: EnvPresetKey,
			Env: &EnvOptions{
				Targets:     buildTargets(cfg.Env),
				UseBuiltIns: cfg.Env.UseBuiltIns && !cfg.Evaluate,
			},
		})
		if cfg.Env.Debug {
			// The engine invokes this before Transform returns; the captured
			// value is attached only when the transform succeeds.
			opts.OnEnvDebug = func(info string) {
				outcome.EnvPresetDebug = info
			}
		}
	}

	start := time.Now()
	result, err := t.Transform(code, opts)
	elapsed := time.Since(start)

	if err != nil {
		// A failed compile carries only the error; debug text captured
		// mid-transform is discarded with the rest of the partial result.
		return Outcome{CompileError: err.Error()}
	}

	outcome.Compiled = result.Code
	outcome.TransformTimeMs = float64(elapsed) / float64(time.Millisecond)

	if result.AST != nil {
		astJSON, err := json.MarshalIndent(result.AST, "", "  ")
		if err != nil {
			logger.Warn("failed to serialize AST", "error", err)
		} else {
			outcome.AST = string(astJSON)
		}
	}

	if cfg.SourceMap && result.Map != nil {
		mapJSON, err := json.Marshal(result.Map)
		if err != nil {
			// Degrades to no source map; never fails the compile.
			logger.Warn("failed to serialize source map", "error", err)
		} else {
			outcome.SourceMap = string(mapJSON)
		}
	}

	return outcome
}

// buildTargets assembles the env preset targets from the raw settings. The
// browsers field is comma-separated; entries are trimmed and empties
// dropped. Node and electron versions are included only when their enable
// flags are set.
func buildTargets(env EnvConfig) Targets {
	var t Targets
	for _, b := range strings.Split(env.Browsers, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			t.Browsers = append(t.Browsers, b)
		}
	}
	if env.IsNodeEnabled {
		t.Node = env.NodeVersion
	}
	if env.IsElectronEnabled {
		t.Electron = env.ElectronVersion
	}
	return t
}
