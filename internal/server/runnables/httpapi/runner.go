// Package httpapi exposes the playground session over HTTP: JSON endpoints
// for every session operation plus a websocket feed of state snapshots.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/robbyt/go-supervisor/runnables/httpserver"
	"github.com/robbyt/go-supervisor/supervisor"

	"github.com/replbox/replbox/internal/server/finitestate"
	"github.com/replbox/replbox/internal/server/runnables/orchestrator"
	"github.com/replbox/replbox/internal/session"
)

var (
	_ supervisor.Runnable  = (*Runner)(nil)
	_ supervisor.Stateable = (*Runner)(nil)
)

// sessionAPI is the slice of the orchestrator the HTTP surface needs.
type sessionAPI interface {
	Snapshot(ctx context.Context) (*session.State, error)
	SetCode(ctx context.Context, code string) error
	TogglePlugin(ctx context.Context, key string, enabled bool) error
	SetEnv(ctx context.Context, env session.EnvConfig) error
	SetOptions(ctx context.Context, opts orchestrator.Options) error
	Import(ctx context.Context, rec session.Record) error
	Watch(ctx context.Context) (<-chan *session.State, error)
}

// Runner wraps the go-supervisor httpserver.Runner with the playground
// route table.
type Runner struct {
	address string
	logger  *slog.Logger
	api     sessionAPI
	server  *httpserver.Runner
}

// NewRunner creates the HTTP API server bound to the given address.
func NewRunner(address string, api sessionAPI, opts ...Option) (*Runner, error) {
	if api == nil {
		return nil, fmt.Errorf("session API is required")
	}

	r := &Runner{
		address: address,
		logger:  slog.Default().WithGroup("httpapi.Runner"),
		api:     api,
	}
	for _, opt := range opts {
		opt(r)
	}

	routes, err := r.buildRoutes()
	if err != nil {
		return nil, fmt.Errorf("failed to build routes: %w", err)
	}

	configCallback := func() (*httpserver.Config, error) {
		return httpserver.NewConfig(
			r.address,
			routes,
			httpserver.WithDrainTimeout(5*time.Second),
		)
	}

	server, err := httpserver.NewRunner(
		httpserver.WithConfigCallback(configCallback),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP server runner: %w", err)
	}
	r.server = server

	return r, nil
}

func (r *Runner) buildRoutes() ([]httpserver.Route, error) {
	specs := []struct {
		name    string
		path    string
		handler func(w http.ResponseWriter, req *http.Request)
	}{
		{"session", "/api/session", r.handleSession},
		{"code", "/api/code", r.handleCode},
		{"plugins", "/api/plugins", r.handlePlugins},
		{"env", "/api/env", r.handleEnv},
		{"options", "/api/options", r.handleOptions},
		{"output", "/api/output", r.handleOutput},
		{"share", "/api/share", r.handleShare},
		{"export", "/api/export", r.handleExport},
		{"import", "/api/import", r.handleImport},
		{"watch", "/api/watch", r.handleWatch},
	}

	routes := make([]httpserver.Route, 0, len(specs))
	for _, s := range specs {
		route, err := httpserver.NewRouteFromHandlerFunc(s.name, s.path, r.logRequests(s.handler))
		if err != nil {
			return nil, fmt.Errorf("failed to create route %q: %w", s.name, err)
		}
		routes = append(routes, *route)
	}
	return routes, nil
}

// String implements the supervisor.Runnable interface
func (r *Runner) String() string {
	return "httpapi.Runner"
}

// Run starts the HTTP server.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("Starting HTTP API", "address", r.address)
	return r.server.Run(ctx)
}

// Stop implements the supervisor.Runnable interface
func (r *Runner) Stop() {
	r.logger.Debug("Stopping HTTP API")
	r.server.Stop()
}

// GetState implements the supervisor.Stateable interface
func (r *Runner) GetState() string {
	return r.server.GetState()
}

// GetStateChan implements the supervisor.Stateable interface
func (r *Runner) GetStateChan(ctx context.Context) <-chan string {
	return r.server.GetStateChan(ctx)
}

// IsRunning implements the supervisor.Stateable interface
func (r *Runner) IsRunning() bool {
	return r.server.GetState() == finitestate.StatusRunning
}
