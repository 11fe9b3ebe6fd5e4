package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/replbox/replbox/internal/compiler"
	"github.com/replbox/replbox/internal/fancy"
	"github.com/replbox/replbox/internal/registry"
)

var compileCmd = &cli.Command{
	Name:      "compile",
	Usage:     "Compile a file (or stdin) once and print the result",
	ArgsUsage: "[file]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "presets",
			Usage:   "Comma-separated preset and plugin keys",
			Aliases: []string{"p"},
			Value:   "es2015",
		},
		&cli.StringFlag{
			Name:  "browsers",
			Usage: "Target browsers for the env preset (e.g. \"chrome 60, firefox 52\")",
		},
		&cli.BoolFlag{
			Name:  "use-built-ins",
			Usage: "Have the env preset inject the core-js import",
		},
		&cli.BoolFlag{
			Name:  "env-debug",
			Usage: "Print which transforms the env preset selected",
		},
		&cli.BoolFlag{
			Name:  "raw",
			Usage: "Print only the compiled source, no styling",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (trace, debug, info, warn, error)",
			Value: "warn",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		handler, err := setupLogger(cmd.String("log-level"), "text", "")
		if err != nil {
			return cli.Exit(err, 1)
		}

		code, err := readSource(cmd)
		if err != nil {
			return cli.Exit(fmt.Errorf("failed to read source: %w", err), 1)
		}

		keys := splitPresets(cmd.String("presets"))
		if err := registry.Validate(keys); err != nil {
			return cli.Exit(err, 1)
		}

		cfg := compiler.Config{Presets: keys}
		if browsers := cmd.String("browsers"); browsers != "" {
			cfg.Env = compiler.EnvConfig{
				Enabled:     true,
				Browsers:    browsers,
				UseBuiltIns: cmd.Bool("use-built-ins"),
				Debug:       cmd.Bool("env-debug"),
			}
		}

		engine := compiler.NewEngine(compiler.WithLogHandler(handler))
		for _, key := range keys {
			if err := engine.LoadBundle(key); err != nil {
				return cli.Exit(fmt.Errorf("failed to load %q: %w", key, err), 1)
			}
		}
		if cfg.Env.Enabled {
			if err := engine.LoadBundle(registry.EnvPresetKey); err != nil {
				return cli.Exit(fmt.Errorf("failed to load env preset: %w", err), 1)
			}
			if err := engine.RegisterEnvPreset(); err != nil {
				return cli.Exit(fmt.Errorf("failed to register env preset: %w", err), 1)
			}
		}

		outcome := compiler.Compile(code, cfg, engine, slog.Default())

		if cmd.Bool("raw") {
			if outcome.Failed() {
				return cli.Exit(outcome.CompileError, 1)
			}
			fmt.Println(outcome.Compiled)
			return nil
		}

		fmt.Println(fancy.CompileReport(keys, &outcome))
		if outcome.Failed() {
			return cli.Exit("", 1)
		}
		return nil
	},
}

func readSource(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() >= 1 {
		data, err := os.ReadFile(cmd.Args().Get(0))
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func splitPresets(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
