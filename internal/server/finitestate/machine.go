// Package finitestate wraps go-fsm for the two state machines this server
// runs: the standard runnable lifecycle and the per-plugin load lifecycle.
package finitestate

import (
	"context"
	"log/slog"

	"github.com/robbyt/go-fsm"
)

const (
	StatusNew      = fsm.StatusNew
	StatusBooting  = fsm.StatusBooting
	StatusRunning  = fsm.StatusRunning
	StatusStopping = fsm.StatusStopping
	StatusStopped  = fsm.StatusStopped
	StatusError    = fsm.StatusError
	StatusUnknown  = fsm.StatusUnknown
)

// TypicalTransitions is the standard runnable lifecycle transition set.
var TypicalTransitions = fsm.TypicalTransitions

// Machine is the interface both lifecycle machines expose. The abstraction
// keeps runnables testable with mock machines.
type Machine interface {
	// Transition attempts to transition the state machine to the specified state.
	Transition(state string) error

	// TransitionBool attempts the transition and reports success.
	TransitionBool(state string) bool

	// TransitionIfCurrentState transitions only from the given current state.
	TransitionIfCurrentState(currentState, newState string) error

	// SetState forces the state machine to the specified state.
	SetState(state string) error

	// GetState returns the current state of the state machine.
	GetState() string

	// GetStateChan returns a channel emitting states until ctx is canceled.
	GetStateChan(ctx context.Context) <-chan string
}

// New creates a runnable-lifecycle state machine.
func New(handler slog.Handler) (Machine, error) {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return fsm.New(handler, StatusNew, TypicalTransitions)
}
