// Package lifecycle defines the agent lifecycle state machine: valid state
// transitions and the predicates derived from them. It is pure, deterministic,
// and does no I/O — a table lookup, nothing more.
//
// State machine (each state and the states it may move to directly):
//
//	Provisioning -> Running, Error
//	Running      -> Idle, Hibernating, Stopping, Error
//	Idle         -> Running, Hibernating, Stopping, Error
//	Hibernating  -> Running, Provisioning, Stopping, Error
//	Stopping     -> Stopped, Error
//	Stopped      -> Provisioning
//	Error        -> Stopped, Provisioning
package lifecycle

import "fmt"

// AgentState is one of the seven lifecycle states an agent can be in. Numeric
// values are stable and persisted in store index keys; never renumber them.
type AgentState uint8

const (
	Provisioning AgentState = 1
	Running      AgentState = 2
	Idle         AgentState = 3
	Hibernating  AgentState = 4
	Stopping     AgentState = 5
	Stopped      AgentState = 6
	Error        AgentState = 7
)

// String renders the state's lowercase name, used in logs and JSON.
func (s AgentState) String() string {
	switch s {
	case Provisioning:
		return "provisioning"
	case Running:
		return "running"
	case Idle:
		return "idle"
	case Hibernating:
		return "hibernating"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// AgentStateFromByte converts a persisted status byte back to an AgentState.
// ok is false for any value outside 1..7.
func AgentStateFromByte(b byte) (AgentState, bool) {
	s := AgentState(b)
	switch s {
	case Provisioning, Running, Idle, Hibernating, Stopping, Stopped, Error:
		return s, true
	default:
		return 0, false
	}
}

// InvalidTransitionError reports a disallowed state transition.
type InvalidTransitionError struct {
	From AgentState
	To   AgentState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: cannot go from %s to %s", e.From, e.To)
}

// transitions enumerates, for each state, the set of states directly
// reachable from it. This is the single source of truth for the state
// machine; every other function in this package derives from it.
var transitions = map[AgentState]map[AgentState]struct{}{
	Provisioning: {Running: {}, Error: {}},
	Running:      {Idle: {}, Hibernating: {}, Stopping: {}, Error: {}},
	Idle:         {Running: {}, Hibernating: {}, Stopping: {}, Error: {}},
	Hibernating:  {Running: {}, Provisioning: {}, Stopping: {}, Error: {}},
	Stopping:     {Stopped: {}, Error: {}},
	Stopped:      {Provisioning: {}},
	Error:        {Stopped: {}, Provisioning: {}},
}

// IsValidTransition reports whether moving from one state directly to another
// is permitted by the state machine.
func IsValidTransition(from, to AgentState) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// ValidateTransition returns to if the transition is valid, or an
// *InvalidTransitionError otherwise.
func ValidateTransition(from, to AgentState) (AgentState, error) {
	if !IsValidTransition(from, to) {
		return 0, &InvalidTransitionError{From: from, To: to}
	}
	return to, nil
}

// ValidTransitionsFrom returns the set of states directly reachable from the
// given state, in a stable order.
func ValidTransitionsFrom(state AgentState) []AgentState {
	switch state {
	case Provisioning:
		return []AgentState{Running, Error}
	case Running:
		return []AgentState{Idle, Hibernating, Stopping, Error}
	case Idle:
		return []AgentState{Running, Hibernating, Stopping, Error}
	case Hibernating:
		return []AgentState{Running, Provisioning, Stopping, Error}
	case Stopping:
		return []AgentState{Stopped, Error}
	case Stopped:
		return []AgentState{Provisioning}
	case Error:
		return []AgentState{Stopped, Provisioning}
	default:
		return nil
	}
}

// CanAcceptSessions reports whether an agent in this state can have a new
// session created against it without first being woken or re-provisioned.
func CanAcceptSessions(state AgentState) bool {
	return state == Running || state == Idle
}

// CanWake reports whether an agent in this state can be brought back toward
// Running via a wake operation.
func CanWake(state AgentState) bool {
	return state == Hibernating || state == Stopped
}

// IsTerminal reports whether this state is one from which deletion is
// permitted.
func IsTerminal(state AgentState) bool {
	return state == Stopped || state == Error
}

// IsActive reports whether this state implies a live (or live-becoming) pod.
func IsActive(state AgentState) bool {
	switch state {
	case Provisioning, Running, Idle, Stopping:
		return true
	default:
		return false
	}
}
