package persist

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/pierrec/lz4"

	"github.com/replbox/replbox/internal/session"
)

// codePackThreshold is the code length, in bytes, above which the query
// carries compressed code instead of plain text.
const codePackThreshold = 128

// EncodeQuery renders the record as URL query parameters. Long code is
// lz4-compressed into code_lz so shared links stay manageable.
func EncodeQuery(rec session.Record) (url.Values, error) {
	q := url.Values{}

	if len(rec.Code) > codePackThreshold {
		packed, err := packCode(rec.Code)
		if err != nil {
			return nil, fmt.Errorf("failed to pack code: %w", err)
		}
		q.Set("code_lz", packed)
	} else if rec.Code != "" {
		q.Set("code", rec.Code)
	}

	if rec.Presets != "" {
		q.Set("presets", rec.Presets)
	}
	setBool(q, "minify", rec.Minify)
	setBool(q, "evaluate", rec.Evaluate)
	setBool(q, "debug", rec.Debug)

	if rec.Browsers != "" {
		q.Set("browsers", rec.Browsers)
	}
	setBool(q, "env_enabled", rec.IsEnvEnabled)
	setBool(q, "node_enabled", rec.IsNodeEnabled)
	if rec.NodeVersion != "" {
		q.Set("node_version", rec.NodeVersion)
	}
	setBool(q, "electron_enabled", rec.IsElectronEnabled)
	if rec.ElectronVersion != "" {
		q.Set("electron_version", rec.ElectronVersion)
	}
	setBool(q, "use_built_ins", rec.UseBuiltIns)

	setBool(q, "show_sidebar", rec.ShowSidebar)
	setBool(q, "show_env_panel", rec.ShowEnvPanel)
	setBool(q, "line_wrap", rec.LineWrap)
	return q, nil
}

// DecodeQuery overlays query parameters onto a base record. Unknown
// parameters are ignored and malformed values keep the base field. When
// both forms of code are present, code_lz wins.
func DecodeQuery(q url.Values, base session.Record) session.Record {
	rec := base

	if packed := q.Get("code_lz"); packed != "" {
		if code, err := unpackCode(packed); err == nil {
			rec.Code = code
		}
	} else if q.Has("code") {
		rec.Code = q.Get("code")
	}

	if q.Has("presets") {
		rec.Presets = q.Get("presets")
	}
	getBool(q, "minify", &rec.Minify)
	getBool(q, "evaluate", &rec.Evaluate)
	getBool(q, "debug", &rec.Debug)

	if q.Has("browsers") {
		rec.Browsers = q.Get("browsers")
	}
	getBool(q, "env_enabled", &rec.IsEnvEnabled)
	getBool(q, "node_enabled", &rec.IsNodeEnabled)
	if q.Has("node_version") {
		rec.NodeVersion = q.Get("node_version")
	}
	getBool(q, "electron_enabled", &rec.IsElectronEnabled)
	if q.Has("electron_version") {
		rec.ElectronVersion = q.Get("electron_version")
	}
	getBool(q, "use_built_ins", &rec.UseBuiltIns)

	getBool(q, "show_sidebar", &rec.ShowSidebar)
	getBool(q, "show_env_panel", &rec.ShowEnvPanel)
	getBool(q, "line_wrap", &rec.LineWrap)
	return rec
}

// packCode compresses code with lz4 and encodes it URL-safe.
func packCode(code string) (string, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write([]byte(code)); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

func unpackCode(packed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(packed)
	if err != nil {
		return "", fmt.Errorf("failed to decode packed code: %w", err)
	}
	zr := lz4.NewReader(bytes.NewReader(raw))
	code, err := io.ReadAll(zr)
	if err != nil {
		return "", fmt.Errorf("failed to decompress packed code: %w", err)
	}
	return string(code), nil
}

func setBool(q url.Values, key string, v bool) {
	q.Set(key, strconv.FormatBool(v))
}

func getBool(q url.Values, key string, dst *bool) {
	if !q.Has(key) {
		return
	}
	if v, err := strconv.ParseBool(q.Get(key)); err == nil {
		*dst = v
	}
}
