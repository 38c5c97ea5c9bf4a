package workflow

// State represents a run status in the review lifecycle
type State string

const (
	StateInitialized      State = "initialized"
	StateInProgress       State = "in_progress"
	StateSectionsComplete State = "sections_complete"
	StateComplete         State = "complete"
)

var validStates = map[State]bool{
	StateInitialized:      true,
	StateInProgress:       true,
	StateSectionsComplete: true,
	StateComplete:         true,
}

var terminalStates = map[State]bool{
	StateComplete: true,
}

// IsTerminal returns true if the state allows no further transitions
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsValid returns true if the state is a valid run status
func (s State) IsValid() bool {
	return validStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}
