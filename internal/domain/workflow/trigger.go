package workflow

// Trigger represents an event that can cause a run status transition
type Trigger string

const (
	// TriggerStart fires when the sequencer begins executing tasks
	TriggerStart Trigger = "START"

	// TriggerCompleteSections fires when the last automated task has
	// completed and the run awaits the human decision
	TriggerCompleteSections Trigger = "COMPLETE_SECTIONS"

	// TriggerFinalize fires when every task in the ledger is completed
	TriggerFinalize Trigger = "FINALIZE"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
