package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/robbyt/go-supervisor/supervisor"
	"github.com/urfave/cli/v3"

	"github.com/replbox/replbox/internal/persist"
	"github.com/replbox/replbox/internal/sandbox"
	"github.com/replbox/replbox/internal/server/runnables/httpapi"
	"github.com/replbox/replbox/internal/server/runnables/orchestrator"
	"github.com/replbox/replbox/internal/server/runnables/worker"
)

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "Start the playground daemon",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "listen",
			Usage:   "Address to bind the HTTP API",
			Aliases: []string{"l"},
			Value:   "127.0.0.1:8787",
		},
		&cli.StringFlag{
			Name:  "session-file",
			Usage: "Path to the session TOML file",
		},
		&cli.StringFlag{
			Name:  "share",
			Usage: "Shared URL or query string to restore the session from (wins over the session file)",
		},
		&cli.DurationFlag{
			Name:  "debounce",
			Usage: "Quiet period before recompiling after an edit",
			Value: orchestrator.DefaultDebounceInterval,
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (trace, debug, info, warn, error)",
			Value: "info",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format (text or json)",
			Value: "text",
		},
		&cli.StringFlag{
			Name:  "log-output",
			Usage: "Log destination (stderr, stdout, or a file path)",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		handler, err := setupLogger(
			cmd.String("log-level"), cmd.String("log-format"), cmd.String("log-output"))
		if err != nil {
			return cli.Exit(err, 1)
		}

		sessionPath := cmd.String("session-file")
		if sessionPath == "" {
			sessionPath, err = defaultSessionPath()
			if err != nil {
				return cli.Exit(fmt.Errorf("failed to resolve session path: %w", err), 1)
			}
		}

		store := persist.NewStore(sessionPath, persist.WithLogHandler(handler))
		rec := store.Load()

		if share := cmd.String("share"); share != "" {
			q, err := parseShare(share)
			if err != nil {
				return cli.Exit(fmt.Errorf("failed to parse share value: %w", err), 1)
			}
			rec = persist.DecodeQuery(q, rec)
		}

		workerRunner, err := worker.NewRunner(worker.WithLogHandler(handler))
		if err != nil {
			return cli.Exit(fmt.Errorf("failed to create compile worker: %w", err), 1)
		}

		sb, err := sandbox.New(sandbox.WithLogHandler(handler))
		if err != nil {
			return cli.Exit(fmt.Errorf("failed to create sandbox: %w", err), 1)
		}

		orch, err := orchestrator.NewRunner(
			workerRunner,
			sb,
			rec,
			orchestrator.WithLogHandler(handler),
			orchestrator.WithStore(store),
			orchestrator.WithDebounceInterval(cmd.Duration("debounce")),
		)
		if err != nil {
			return cli.Exit(fmt.Errorf("failed to create orchestrator: %w", err), 1)
		}

		api, err := httpapi.NewRunner(
			cmd.String("listen"),
			orch,
			httpapi.WithLogHandler(handler),
		)
		if err != nil {
			return cli.Exit(fmt.Errorf("failed to create HTTP API: %w", err), 1)
		}

		// Order is important: the worker must be accepting requests before
		// the orchestrator boots, and the API comes up last.
		runnables := []supervisor.Runnable{
			workerRunner,
			orch,
			api,
		}

		super, err := supervisor.New(
			supervisor.WithRunnables(runnables...),
			supervisor.WithLogHandler(handler),
			supervisor.WithContext(ctx),
		)
		if err != nil {
			return cli.Exit(fmt.Errorf("failed to create supervisor: %w", err), 1)
		}
		if err := super.Run(); err != nil {
			return cli.Exit(fmt.Errorf("failed to run playground: %w", err), 1)
		}
		return nil
	},
}

func defaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "replbox", "session.toml"), nil
}

// parseShare accepts a full shared URL, a bare query string, or one with a
// leading "?" and returns its query parameters.
func parseShare(share string) (url.Values, error) {
	if strings.Contains(share, "://") {
		u, err := url.Parse(share)
		if err != nil {
			return nil, err
		}
		return u.Query(), nil
	}
	return url.ParseQuery(strings.TrimPrefix(share, "?"))
}
