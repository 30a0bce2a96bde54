package bufferstream

// Mode selects how a stage aggregates units.
type Mode int

const (
	// ModeBinary concatenates []byte/string chunks.
	ModeBinary Mode = iota
	// ModeObject keeps an ordered list of opaque values.
	ModeObject
)

func (m Mode) String() string {
	if m == ModeObject {
		return "object"
	}
	return "binary"
}

// State is a stage lifecycle state.
type State int

const (
	StateIngesting State = iota
	StateFinalizing
	StateAwaitingCallback
	StateEmitting
	StateClosed
	StateErrorRaised
)

var stateNames = [...]string{
	StateIngesting:        "ingesting",
	StateFinalizing:       "finalizing",
	StateAwaitingCallback: "awaiting_callback",
	StateEmitting:         "emitting",
	StateClosed:           "closed",
	StateErrorRaised:      "error_raised",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no further ingestion or emission is possible.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateErrorRaised
}
