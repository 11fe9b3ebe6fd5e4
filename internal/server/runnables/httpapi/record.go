package httpapi

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/replbox/replbox/internal/session"
)

// encodeRecord renders a session record as the export JSON document.
func encodeRecord(rec session.Record) ([]byte, error) {
	fields := []struct {
		path  string
		value any
	}{
		{"code", rec.Code},
		{"presets", rec.Presets},
		{"minify", rec.Minify},
		{"evaluate", rec.Evaluate},
		{"debug", rec.Debug},
		{"env.browsers", rec.Browsers},
		{"env.enabled", rec.IsEnvEnabled},
		{"env.nodeEnabled", rec.IsNodeEnabled},
		{"env.nodeVersion", rec.NodeVersion},
		{"env.electronEnabled", rec.IsElectronEnabled},
		{"env.electronVersion", rec.ElectronVersion},
		{"env.useBuiltIns", rec.UseBuiltIns},
		{"options.showSidebar", rec.ShowSidebar},
		{"options.showEnvPanel", rec.ShowEnvPanel},
		{"options.lineWrap", rec.LineWrap},
	}

	data := []byte("{}")
	for _, f := range fields {
		var err error
		data, err = sjson.SetBytes(data, f.path, f.value)
		if err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", f.path, err)
		}
	}
	return data, nil
}

// decodeRecord reads an export document back into a record. Absent fields
// stay at their zero values; import semantics treat the document as a whole
// session, not an overlay.
func decodeRecord(data []byte) session.Record {
	return session.Record{
		Code:              gjson.GetBytes(data, "code").String(),
		Presets:           gjson.GetBytes(data, "presets").String(),
		Minify:            gjson.GetBytes(data, "minify").Bool(),
		Evaluate:          gjson.GetBytes(data, "evaluate").Bool(),
		Debug:             gjson.GetBytes(data, "debug").Bool(),
		Browsers:          gjson.GetBytes(data, "env.browsers").String(),
		IsEnvEnabled:      gjson.GetBytes(data, "env.enabled").Bool(),
		IsNodeEnabled:     gjson.GetBytes(data, "env.nodeEnabled").Bool(),
		NodeVersion:       gjson.GetBytes(data, "env.nodeVersion").String(),
		IsElectronEnabled: gjson.GetBytes(data, "env.electronEnabled").Bool(),
		ElectronVersion:   gjson.GetBytes(data, "env.electronVersion").String(),
		UseBuiltIns:       gjson.GetBytes(data, "env.useBuiltIns").Bool(),
		ShowSidebar:       gjson.GetBytes(data, "options.showSidebar").Bool(),
		ShowEnvPanel:      gjson.GetBytes(data, "options.showEnvPanel").Bool(),
		LineWrap:          gjson.GetBytes(data, "options.lineWrap").Bool(),
	}
}
