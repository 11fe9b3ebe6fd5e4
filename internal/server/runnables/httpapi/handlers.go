package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/replbox/replbox/internal/persist"
	"github.com/replbox/replbox/internal/registry"
	"github.com/replbox/replbox/internal/server/runnables/orchestrator"
	"github.com/replbox/replbox/internal/session"
)

const maxBodyBytes = 1 << 20

type pluginPayload struct {
	Key          string `json:"key"`
	Label        string `json:"label"`
	IsEnabled    bool   `json:"isEnabled"`
	IsLoading    bool   `json:"isLoading"`
	IsLoaded     bool   `json:"isLoaded"`
	DidError     bool   `json:"didError"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

type sessionPayload struct {
	Code         string                     `json:"code"`
	Evaluate     bool                       `json:"evaluate"`
	Plugins      map[string][]pluginPayload `json:"plugins"`
	Env          session.EnvConfig          `json:"env"`
	ConsoleLog   []string                   `json:"consoleLog,omitempty"`
	EvalError    string                     `json:"evalError,omitempty"`
	ShowSidebar  bool                       `json:"showSidebar"`
	ShowEnvPanel bool                       `json:"showEnvPanel"`
	LineWrap     bool                       `json:"lineWrap"`
}

func buildSessionPayload(snap *session.State) sessionPayload {
	plugins := make(map[string][]pluginPayload, 4)
	for _, cat := range []registry.Category{
		registry.CategoryPresets,
		registry.CategoryPlugins,
		registry.CategoryRuntime,
		registry.CategoryEnv,
	} {
		for _, d := range registry.ByCategory(cat) {
			p := snap.Plugin(d.Key)
			if p == nil {
				continue
			}
			plugins[string(cat)] = append(plugins[string(cat)], pluginPayload{
				Key:          p.Key,
				Label:        d.Label,
				IsEnabled:    p.IsEnabled,
				IsLoading:    p.IsLoading,
				IsLoaded:     p.IsLoaded,
				DidError:     p.DidError,
				ErrorMessage: p.ErrorMessage,
			})
		}
	}

	return sessionPayload{
		Code:         snap.Code,
		Evaluate:     snap.Evaluate,
		Plugins:      plugins,
		Env:          snap.Env,
		ConsoleLog:   snap.ConsoleLog,
		EvalError:    snap.EvalError,
		ShowSidebar:  snap.ShowSidebar,
		ShowEnvPanel: snap.ShowEnvPanel,
		LineWrap:     snap.LineWrap,
	}
}

func (r *Runner) handleSession(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snap, err := r.api.Snapshot(req.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, buildSessionPayload(snap))
}

func (r *Runner) handleCode(w http.ResponseWriter, req *http.Request) {
	body, ok := r.readBody(w, req)
	if !ok {
		return
	}
	code := gjson.GetBytes(body, "code")
	if !code.Exists() {
		writeError(w, http.StatusBadRequest, "missing code field")
		return
	}
	if err := r.api.SetCode(req.Context(), code.String()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
}

func (r *Runner) handlePlugins(w http.ResponseWriter, req *http.Request) {
	body, ok := r.readBody(w, req)
	if !ok {
		return
	}
	key := gjson.GetBytes(body, "key")
	enabled := gjson.GetBytes(body, "enabled")
	if !key.Exists() || !enabled.Exists() {
		writeError(w, http.StatusBadRequest, "missing key or enabled field")
		return
	}

	err := r.api.TogglePlugin(req.Context(), key.String(), enabled.Bool())
	if errors.Is(err, orchestrator.ErrUnknownPlugin) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
}

func (r *Runner) handleEnv(w http.ResponseWriter, req *http.Request) {
	body, ok := r.readBody(w, req)
	if !ok {
		return
	}
	env := session.EnvConfig{
		Browsers:          gjson.GetBytes(body, "browsers").String(),
		IsNodeEnabled:     gjson.GetBytes(body, "isNodeEnabled").Bool(),
		NodeVersion:       gjson.GetBytes(body, "nodeVersion").String(),
		IsElectronEnabled: gjson.GetBytes(body, "isElectronEnabled").Bool(),
		ElectronVersion:   gjson.GetBytes(body, "electronVersion").String(),
		UseBuiltIns:       gjson.GetBytes(body, "useBuiltIns").Bool(),
		Debug:             gjson.GetBytes(body, "debug").Bool(),
	}
	if err := r.api.SetEnv(req.Context(), env); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
}

func (r *Runner) handleOptions(w http.ResponseWriter, req *http.Request) {
	body, ok := r.readBody(w, req)
	if !ok {
		return
	}
	var opts orchestrator.Options
	if v := gjson.GetBytes(body, "showSidebar"); v.Exists() {
		b := v.Bool()
		opts.ShowSidebar = &b
	}
	if v := gjson.GetBytes(body, "showEnvPanel"); v.Exists() {
		b := v.Bool()
		opts.ShowEnvPanel = &b
	}
	if v := gjson.GetBytes(body, "lineWrap"); v.Exists() {
		b := v.Bool()
		opts.LineWrap = &b
	}
	if err := r.api.SetOptions(req.Context(), opts); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
}

func (r *Runner) handleOutput(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snap, err := r.api.Snapshot(req.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if snap.LastOutcome == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"ready": false})
		return
	}
	writeJSON(w, http.StatusOK, snap.LastOutcome)
}

func (r *Runner) handleShare(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snap, err := r.api.Snapshot(req.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	q, err := persist.EncodeQuery(snap.ToRecord())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	u := url.URL{Path: "/", RawQuery: q.Encode()}
	writeJSON(w, http.StatusOK, map[string]string{"url": u.String()})
}

func (r *Runner) handleExport(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snap, err := r.api.Snapshot(req.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	data, err := encodeRecord(snap.ToRecord())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		r.logger.Debug("failed to write export response", "error", err)
	}
}

func (r *Runner) handleImport(w http.ResponseWriter, req *http.Request) {
	body, ok := r.readBody(w, req)
	if !ok {
		return
	}
	if !gjson.ValidBytes(body) {
		writeError(w, http.StatusBadRequest, "body is not valid JSON")
		return
	}

	err := r.api.Import(req.Context(), decodeRecord(body))
	if errors.Is(err, registry.ErrUnknownKey) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
}

// readBody enforces POST with a bounded JSON body.
func (r *Runner) readBody(w http.ResponseWriter, req *http.Request) ([]byte, bool) {
	if req.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return nil, false
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
