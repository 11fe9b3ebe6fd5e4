package orchestrator

import "errors"

// ErrUnknownPlugin is returned when a toggle names a key outside the catalog.
var ErrUnknownPlugin = errors.New("unknown plugin key")
