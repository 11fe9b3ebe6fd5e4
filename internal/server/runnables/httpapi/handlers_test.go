package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/replbox/replbox/internal/compiler"
	"github.com/replbox/replbox/internal/server/runnables/orchestrator"
	"github.com/replbox/replbox/internal/session"
)

type stubAPI struct {
	mu      sync.Mutex
	snap    *session.State
	code    string
	toggles map[string]bool
	env     session.EnvConfig
	opts    orchestrator.Options
	imports []session.Record
	watchCh chan *session.State

	toggleErr error
	importErr error
}

func newStubAPI() *stubAPI {
	return &stubAPI{
		snap:    session.NewState(session.DefaultRecord()),
		toggles: make(map[string]bool),
		watchCh: make(chan *session.State, 4),
	}
}

func (s *stubAPI) Snapshot(context.Context) (*session.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone(), nil
}

func (s *stubAPI) SetCode(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code = code
	return nil
}

func (s *stubAPI) TogglePlugin(_ context.Context, key string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.toggleErr != nil {
		return s.toggleErr
	}
	s.toggles[key] = enabled
	return nil
}

func (s *stubAPI) SetEnv(_ context.Context, env session.EnvConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env = env
	return nil
}

func (s *stubAPI) SetOptions(_ context.Context, opts orchestrator.Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = opts
	return nil
}

func (s *stubAPI) Import(_ context.Context, rec session.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.importErr != nil {
		return s.importErr
	}
	s.imports = append(s.imports, rec)
	return nil
}

func (s *stubAPI) Watch(context.Context) (<-chan *session.State, error) {
	return s.watchCh, nil
}

func newTestRunner(t *testing.T, api sessionAPI) *Runner {
	t.Helper()
	runner, err := NewRunner("127.0.0.1:0", api)
	require.NoError(t, err)
	return runner
}

func TestHandleSession(t *testing.T) {
	t.Parallel()

	api := newStubAPI()
	runner := newTestRunner(t, api)

	rec := httptest.NewRecorder()
	runner.handleSession(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, session.DefaultRecord().Code, gjson.Get(body, "code").String())
	assert.True(t, gjson.Get(body, "showSidebar").Bool())

	presets := gjson.Get(body, "plugins.presets").Array()
	require.Len(t, presets, 2)
	assert.Equal(t, "es2015", presets[0].Get("key").String())
	assert.True(t, presets[0].Get("isEnabled").Bool())
}

func TestHandleSessionRejectsPost(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, newStubAPI())

	rec := httptest.NewRecorder()
	runner.handleSession(rec, httptest.NewRequest(http.MethodPost, "/api/session", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleCode(t *testing.T) {
	t.Parallel()

	api := newStubAPI()
	runner := newTestRunner(t, api)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(
		http.MethodPost, "/api/code", strings.NewReader(`{"code":"var x;"}`))
	runner.handleCode(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "var x;", api.code)
}

func TestHandleCodeMissingField(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, newStubAPI())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/code", strings.NewReader(`{}`))
	runner.handleCode(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePlugins(t *testing.T) {
	t.Parallel()

	api := newStubAPI()
	runner := newTestRunner(t, api)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(
		http.MethodPost, "/api/plugins", strings.NewReader(`{"key":"minify","enabled":true}`))
	runner.handlePlugins(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, api.toggles["minify"])
}

func TestHandlePluginsUnknownKey(t *testing.T) {
	t.Parallel()

	api := newStubAPI()
	api.toggleErr = orchestrator.ErrUnknownPlugin
	runner := newTestRunner(t, api)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(
		http.MethodPost, "/api/plugins", strings.NewReader(`{"key":"nope","enabled":true}`))
	runner.handlePlugins(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleEnv(t *testing.T) {
	t.Parallel()

	api := newStubAPI()
	runner := newTestRunner(t, api)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/env",
		strings.NewReader(`{"browsers":"chrome 60","isNodeEnabled":true,"nodeVersion":"10.13"}`))
	runner.handleEnv(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "chrome 60", api.env.Browsers)
	assert.True(t, api.env.IsNodeEnabled)
	assert.Equal(t, "10.13", api.env.NodeVersion)
}

func TestHandleOptionsPartialUpdate(t *testing.T) {
	t.Parallel()

	api := newStubAPI()
	runner := newTestRunner(t, api)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(
		http.MethodPost, "/api/options", strings.NewReader(`{"lineWrap":false}`))
	runner.handleOptions(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.NotNil(t, api.opts.LineWrap)
	assert.False(t, *api.opts.LineWrap)
	assert.Nil(t, api.opts.ShowSidebar, "absent fields stay untouched")
	assert.Nil(t, api.opts.ShowEnvPanel)
}

func TestHandleOutput(t *testing.T) {
	t.Parallel()

	api := newStubAPI()
	runner := newTestRunner(t, api)

	rec := httptest.NewRecorder()
	runner.handleOutput(rec, httptest.NewRequest(http.MethodGet, "/api/output", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, gjson.Get(rec.Body.String(), "ready").Bool())

	api.mu.Lock()
	api.snap.LastOutcome = &compiler.Outcome{Compiled: "var x;", TransformTimeMs: 1.5}
	api.mu.Unlock()

	rec = httptest.NewRecorder()
	runner.handleOutput(rec, httptest.NewRequest(http.MethodGet, "/api/output", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "var x;", gjson.Get(rec.Body.String(), "compiled").String())
}

func TestHandleShare(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, newStubAPI())

	rec := httptest.NewRecorder()
	runner.handleShare(rec, httptest.NewRequest(http.MethodGet, "/api/share", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	u := gjson.Get(rec.Body.String(), "url").String()
	assert.True(t, strings.HasPrefix(u, "/?"))
	assert.Contains(t, u, "presets=es2015")
}

func TestExportImportRoundTrip(t *testing.T) {
	t.Parallel()

	api := newStubAPI()
	runner := newTestRunner(t, api)

	rec := httptest.NewRecorder()
	runner.handleExport(rec, httptest.NewRequest(http.MethodGet, "/api/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	exported := rec.Body.String()
	assert.Equal(t, "es2015", gjson.Get(exported, "presets").String())

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(exported))
	runner.handleImport(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Len(t, api.imports, 1)
	assert.Equal(t, session.DefaultRecord().Code, api.imports[0].Code)
	assert.Equal(t, "es2015", api.imports[0].Presets)
}

func TestHandleImportRejectsGarbage(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, newStubAPI())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader("not json"))
	runner.handleImport(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleWatchStreamsSnapshots(t *testing.T) {
	t.Parallel()

	api := newStubAPI()
	runner := newTestRunner(t, api)

	srv := httptest.NewServer(http.HandlerFunc(runner.handleWatch))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	// First message is the immediate snapshot.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var first sessionPayload
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, session.DefaultRecord().Code, first.Code)

	// A pushed update arrives as a second message.
	updated := session.NewState(session.Record{Code: "var pushed;"})
	api.watchCh <- updated

	var second sessionPayload
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "var pushed;", second.Code)
}
