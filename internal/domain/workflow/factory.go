package workflow

// BuildRunStateMachine creates a state machine configured for the run
// lifecycle. Transitions are forward-only; there is no path back from
// a later state.
func BuildRunStateMachine(initialState State) StateMachine {
	builder := NewBuilder()

	builder.Configure(StateInitialized).
		Permit(TriggerStart, StateInProgress)

	builder.Configure(StateInProgress).
		Permit(TriggerCompleteSections, StateSectionsComplete)

	builder.Configure(StateSectionsComplete).
		Permit(TriggerFinalize, StateComplete)

	// COMPLETE is terminal

	return builder.Build(initialState)
}
