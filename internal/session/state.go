package session

// State is the lifecycle state of one interview session. Transitions are
// monotonic except for the active ⇄ interrupting cycle, which repeats on
// every barge-in.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateActive
	StateInterrupting
	StateEnding
	StateEnded
	StateErrored
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateInterrupting:
		return "interrupting"
	case StateEnding:
		return "ending"
	case StateEnded:
		return "ended"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateEnded || s == StateErrored
}
