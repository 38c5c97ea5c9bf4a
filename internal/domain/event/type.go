package event

// Type identifies a domain event
type Type string

const (
	// TypeRunCreated fires when a case intake creates a new run
	TypeRunCreated Type = "run.created"

	// TypeRunStarted fires on the first task transition of a run
	TypeRunStarted Type = "run.started"

	// TypeTaskStarted fires when a task moves to in-progress
	TypeTaskStarted Type = "task.started"

	// TypeTaskCompleted fires after the checkpoint write and ledger update
	TypeTaskCompleted Type = "task.completed"

	// TypeRunHalted fires when a task execution fails and the run stops
	TypeRunHalted Type = "run.halted"

	// TypeSectionsComplete fires when all automated tasks are done
	TypeSectionsComplete Type = "run.sections_complete"

	// TypeRunCompleted fires when the last task completes
	TypeRunCompleted Type = "run.completed"

	// TypeDecisionProposed fires when the resolver emits a candidate decision
	TypeDecisionProposed Type = "decision.proposed"

	// TypeOverrideRecorded fires when a human override is persisted
	TypeOverrideRecorded Type = "override.recorded"
)

// String returns the string representation of the type
func (t Type) String() string {
	return string(t)
}
