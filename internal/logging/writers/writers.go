// Package writers resolves log output destinations from CLI flag values.
package writers

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CreateWriter creates an io.Writer from an output specification:
//
//   - "stderr" or "" writes to os.Stderr
//   - "stdout" writes to os.Stdout
//   - "file:///path" or a plain path appends to that file, creating parent
//     directories as needed
func CreateWriter(output string) (io.Writer, error) {
	switch {
	case output == "" || output == "stderr":
		return os.Stderr, nil
	case output == "stdout":
		return os.Stdout, nil
	case strings.HasPrefix(output, "file://"):
		return createFileWriter(strings.TrimPrefix(output, "file://"))
	case looksLikePath(output):
		return createFileWriter(output)
	default:
		return nil, fmt.Errorf("unsupported log output %q", output)
	}
}

func looksLikePath(s string) bool {
	if strings.Contains(s, "://") {
		return false
	}
	return strings.ContainsAny(s, `/\`)
}

func createFileWriter(path string) (io.Writer, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "/" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return f, nil
}
