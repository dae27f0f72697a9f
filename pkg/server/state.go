package server

// State is a lifecycle state of an InterfaceServer.
type State int32

const (
	StateUninitialized State = iota
	StateStopped
	StateStopping
	StateStarted
	StateStarting
	StateDestroying
	StateDestroyed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateStopped:
		return "STOPPED"
	case StateStopping:
		return "STOPPING"
	case StateStarted:
		return "STARTED"
	case StateStarting:
		return "STARTING"
	case StateDestroying:
		return "DESTROYING"
	case StateDestroyed:
		return "DESTROYED"
	default:
		return "UNKNOWN"
	}
}

// target maps transitional states to the state they lead to.
func (s State) target() State {
	switch s {
	case StateStarting:
		return StateStarted
	case StateStopping:
		return StateStopped
	case StateDestroying:
		return StateDestroyed
	default:
		return s
	}
}

// Transitional reports whether s is a passing state of the state machine.
func (s State) Transitional() bool {
	return s == StateStarting || s == StateStopping || s == StateDestroying
}

// validTransitions lists every edge the state machine may take.
var validTransitions = map[State][]State{
	StateUninitialized: {StateStarting, StateDestroying},
	StateStopped:       {StateStarting, StateDestroying},
	StateStarting:      {StateStarted, StateStopped},
	StateStarted:       {StateStopping},
	StateStopping:      {StateStopped},
	StateDestroying:    {StateDestroyed},
}

// ValidTransition reports whether from -> to is an edge of the state machine.
func ValidTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
