// Package persist keeps the session record durable in two mirrored forms: a
// TOML file on disk and a shareable URL query string. Loading is forgiving;
// a missing or damaged file costs individual fields, never startup.
package persist

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/replbox/replbox/internal/session"
)

// Store reads and writes the session TOML file.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a Store for the given file path.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		path:   path,
		logger: slog.Default().WithGroup("persist.Store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogHandler sets a custom slog handler for the Store instance.
func WithLogHandler(handler slog.Handler) StoreOption {
	return func(s *Store) {
		if handler != nil {
			s.logger = slog.New(handler).WithGroup("persist.Store")
		}
	}
}

// Save writes the record. The write goes through a temp file in the same
// directory so a crash never leaves a half-written session behind.
func (s *Store) Save(rec session.Record) error {
	data, err := toml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// Load reads the record, falling back to defaults wherever the file is
// missing, unreadable, or malformed. Load never returns an error; the worst
// case is a fresh default session.
func (s *Store) Load() session.Record {
	rec := session.DefaultRecord()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to read session file", "path", s.path, "error", err)
		}
		return rec
	}

	if err := toml.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("session file is malformed, salvaging fields",
			"path", s.path, "error", err)
		return salvageRecord(data)
	}
	return rec
}

// salvageRecord recovers whatever well-typed fields a damaged file still
// has, keeping defaults for the rest.
func salvageRecord(data []byte) session.Record {
	rec := session.DefaultRecord()

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return rec
	}

	pickString(raw, "code", &rec.Code)
	pickString(raw, "presets", &rec.Presets)
	pickBool(raw, "minify", &rec.Minify)
	pickBool(raw, "evaluate", &rec.Evaluate)
	pickBool(raw, "debug", &rec.Debug)
	pickString(raw, "browsers", &rec.Browsers)
	pickBool(raw, "env_enabled", &rec.IsEnvEnabled)
	pickBool(raw, "node_enabled", &rec.IsNodeEnabled)
	pickString(raw, "node_version", &rec.NodeVersion)
	pickBool(raw, "electron_enabled", &rec.IsElectronEnabled)
	pickString(raw, "electron_version", &rec.ElectronVersion)
	pickBool(raw, "use_built_ins", &rec.UseBuiltIns)
	pickBool(raw, "show_sidebar", &rec.ShowSidebar)
	pickBool(raw, "show_env_panel", &rec.ShowEnvPanel)
	pickBool(raw, "line_wrap", &rec.LineWrap)
	return rec
}

func pickString(raw map[string]any, key string, dst *string) {
	if v, ok := raw[key].(string); ok {
		*dst = v
	}
}

func pickBool(raw map[string]any, key string, dst *bool) {
	if v, ok := raw[key].(bool); ok {
		*dst = v
	}
}
