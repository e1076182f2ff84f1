// Package capture runs the capture dialog: one Session per open dialog,
// moving from mode selection through capture, analysis and review to a
// single confirmed submission.
package capture

// State is where a Session is in the capture flow.
type State int

// Session states.
const (
	StateIdle State = iota
	StateModeSelected
	StateCapturing
	StateAnalyzing
	StateReviewing
	StateFinalizing
	StateClosed
	StateError
)

var stateNames = map[State]string{
	StateIdle:         "idle",
	StateModeSelected: "mode_selected",
	StateCapturing:    "capturing",
	StateAnalyzing:    "analyzing",
	StateReviewing:    "reviewing",
	StateFinalizing:   "finalizing",
	StateClosed:       "closed",
	StateError:        "error",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Busy reports whether a capture, analysis or submission is outstanding.
func (s State) Busy() bool {
	return s == StateCapturing || s == StateAnalyzing || s == StateFinalizing
}
