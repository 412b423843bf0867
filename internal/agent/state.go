package agent

import "fmt"

// State is a node in the repair state machine.
type State int

// Repair loop states.
const (
	StateInit State = iota
	StateBuilding
	StateFailed
	StateFixing
	StateSucceeded // terminal
	StateExhausted // terminal
	StateAborted   // terminal
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateBuilding:
		return "building"
	case StateFailed:
		return "failed"
	case StateFixing:
		return "fixing"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateExhausted || s == StateAborted
}

// LoopEvent is an input to the repair state machine.
type LoopEvent int

// Repair loop events.
const (
	EventStart LoopEvent = iota
	EventBuildOK
	EventBuildFailed
	EventFixApplied
	EventAgentError
	EventAttemptsExhausted
)

func (e LoopEvent) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventBuildOK:
		return "build_ok"
	case EventBuildFailed:
		return "build_failed"
	case EventFixApplied:
		return "fix_applied"
	case EventAgentError:
		return "agent_error"
	case EventAttemptsExhausted:
		return "attempts_exhausted"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

type transitionKey struct {
	state State
	event LoopEvent
}

// transitions is the full table of legal (state, event) -> state moves.
var transitions = map[transitionKey]State{
	{StateInit, EventStart}:               StateBuilding,
	{StateInit, EventAgentError}:          StateAborted, // initial prompt failed
	{StateBuilding, EventBuildOK}:         StateSucceeded,
	{StateBuilding, EventBuildFailed}:     StateFailed,
	{StateFailed, EventStart}:             StateFixing,
	{StateFailed, EventAttemptsExhausted}: StateExhausted,
	{StateFixing, EventFixApplied}:        StateBuilding,
	{StateFixing, EventAgentError}:        StateAborted,
}

// Transition applies an event to a state. Illegal moves return an error;
// the loop treats one as a programming bug, not a runtime condition.
func Transition(s State, e LoopEvent) (State, error) {
	next, ok := transitions[transitionKey{s, e}]
	if !ok {
		return s, fmt.Errorf("illegal transition: %s on %s", e, s)
	}
	return next, nil
}
