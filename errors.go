package stateful

import (
	"errors"
	"fmt"
)

// Rejected transitions. Non-fatal: no state changes.
var (
	ErrReentry   = errors.New("state already current and reentry is disabled")
	ErrNotMember = errors.New("state does not belong to this machine")
)

// Unresolved targets. Non-fatal: no state changes.
var (
	ErrOutOfRange   = errors.New("state index out of range")
	ErrUnknownState = errors.New("no state with that name")
)

// Precondition violations.
var (
	ErrNotStarted     = errors.New("machine not started")
	ErrAlreadyStarted = errors.New("machine already started")
	ErrNoStates       = errors.New("no states provided")
	ErrInvalidState   = errors.New("invalid state")
	ErrDuplicateState = errors.New("duplicate state")
	// ErrBusy is returned when a state hook tries to navigate the machine
	// that is running it.
	ErrBusy = errors.New("transition in progress")
)

// TransitionError describes a request the machine refused.
type TransitionError struct {
	Op     string // "start", "next", "previous", "exit", "switch"
	Target string // state name, index or "" when not applicable
	Err    error
}

func (e *TransitionError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
}

func (e *TransitionError) Unwrap() error { return e.Err }

// IsRejection reports whether err is a non-fatal refusal (reentry,
// membership, out of range, unknown name) as opposed to misuse of the
// machine.
func IsRejection(err error) bool {
	return errors.Is(err, ErrReentry) ||
		errors.Is(err, ErrNotMember) ||
		errors.Is(err, ErrOutOfRange) ||
		errors.Is(err, ErrUnknownState)
}

// Rejection is emitted on Machine.Rejected for every refused request.
type Rejection struct {
	MachineID string
	Op        string
	Target    string
	Err       error
}

// Reason is a short stable label for the rejection cause.
func (r Rejection) Reason() string {
	switch {
	case errors.Is(r.Err, ErrReentry):
		return "reentry"
	case errors.Is(r.Err, ErrNotMember):
		return "not_member"
	case errors.Is(r.Err, ErrOutOfRange):
		return "out_of_range"
	case errors.Is(r.Err, ErrUnknownState):
		return "unknown_state"
	case errors.Is(r.Err, ErrNotStarted):
		return "not_started"
	case errors.Is(r.Err, ErrAlreadyStarted):
		return "already_started"
	case errors.Is(r.Err, ErrBusy):
		return "busy"
	default:
		return "other"
	}
}
