package engine

import "github.com/rnafold/rnafold/rnaerr"

// State is a node in the lifecycle spec.md §4.6 describes: Fresh -> Loaded ->
// Scored -> {TracedBack | Inside -> Outside -> Posterior -> Decoded}.
type State int

const (
	Fresh State = iota
	Loaded
	Scored
	TracedBack
	Inside
	Outside
	Posterior
	Decoded
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "Fresh"
	case Loaded:
		return "Loaded"
	case Scored:
		return "Scored"
	case TracedBack:
		return "TracedBack"
	case Inside:
		return "Inside"
	case Outside:
		return "Outside"
	case Posterior:
		return "Posterior"
	case Decoded:
		return "Decoded"
	default:
		return "Unknown"
	}
}

// require returns an *rnaerr.StateError unless the engine's current state is
// one of the permitted predecessor states for op.
func (e *Engine) require(op string, allowed ...State) error {
	for _, s := range allowed {
		if e.state == s {
			return nil
		}
	}
	return &rnaerr.StateError{Op: op, State: e.state.String()}
}

// advance moves the engine to the next state, used once the preceding
// require() check has already passed.
func (e *Engine) advance(next State) { e.state = next }
