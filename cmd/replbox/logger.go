package main

import (
	"fmt"
	"log/slog"

	"github.com/replbox/replbox/internal/logging"
	"github.com/replbox/replbox/internal/logging/writers"
)

// setupLogger configures the default logger from the CLI flags and returns
// its handler for passing down to components.
func setupLogger(level, format, output string) (slog.Handler, error) {
	writer, err := writers.CreateWriter(output)
	if err != nil {
		return nil, fmt.Errorf("failed to create log writer: %w", err)
	}
	handler := logging.SetupHandler(level, format, writer)
	slog.SetDefault(slog.New(handler))
	return handler, nil
}
