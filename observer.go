package hsm

import "time"

// Cause says which operation activated or deactivated a state.
type Cause int

const (
	CauseInitialize Cause = iota
	CauseSubstate
	CauseTransition
)

func (c Cause) String() string {
	switch c {
	case CauseInitialize:
		return "initialize"
	case CauseSubstate:
		return "substate"
	case CauseTransition:
		return "transition"
	default:
		return "unknown"
	}
}

// StateEvent describes one enter or exit.
type StateEvent struct {
	Name  string
	Depth int // number of ancestors at the time of the event
	Cause Cause
}

// TransitionEvent summarizes a completed TransitionTo.
type TransitionEvent struct {
	From    string // leaf before the transition, "" when uninitialized
	To      string
	Common  string // "" when the trees were disjoint
	Exited  []string
	Entered []string
	Elapsed time.Duration
}

// MessageEvent describes a message that escaped the active tree and reached
// the machine's top-level handler.
type MessageEvent struct {
	Kind  string
	Shape string
}

// Observer receives lifecycle notifications. Enters are reported before the
// state's OnEnter runs, exits after its OnExit returns. Calls happen on the
// caller's goroutine, in order.
type Observer interface {
	StateEntered(ev StateEvent)
	StateExited(ev StateEvent)
	Transitioned(ev TransitionEvent)
	Escalated(ev MessageEvent)
}

// ObserverFuncs adapts optional callbacks to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnStateEntered func(ev StateEvent)
	OnStateExited  func(ev StateEvent)
	OnTransitioned func(ev TransitionEvent)
	OnEscalated    func(ev MessageEvent)
}

func (f ObserverFuncs) StateEntered(ev StateEvent) {
	if f.OnStateEntered != nil {
		f.OnStateEntered(ev)
	}
}

func (f ObserverFuncs) StateExited(ev StateEvent) {
	if f.OnStateExited != nil {
		f.OnStateExited(ev)
	}
}

func (f ObserverFuncs) Transitioned(ev TransitionEvent) {
	if f.OnTransitioned != nil {
		f.OnTransitioned(ev)
	}
}

func (f ObserverFuncs) Escalated(ev MessageEvent) {
	if f.OnEscalated != nil {
		f.OnEscalated(ev)
	}
}
