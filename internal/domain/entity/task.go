package entity

import "time"

// TaskRecord is one ledger entry: a named unit of pipeline work for a
// run, with its lifecycle state and timestamps. StartedAt and
// CompletedAt are each set exactly once.
type TaskRecord struct {
	RunID       string     `json:"run_id"`
	TaskID      string     `json:"id"`
	Position    int        `json:"position"`
	Status      TaskStatus `json:"status"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// TaskStatus is the task lifecycle state
type TaskStatus string

const (
	TaskNotStarted TaskStatus = "not-started"
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
)

// CanTransition reports whether moving to the target status is a legal
// forward transition. Backward transitions require an operator reset,
// which is not modeled here.
func (s TaskStatus) CanTransition(to TaskStatus) bool {
	switch s {
	case TaskNotStarted:
		return to == TaskInProgress
	case TaskInProgress:
		return to == TaskCompleted
	default:
		return false
	}
}

// IsValid returns true for a known task status
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskNotStarted, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

// String returns the string representation of the status
func (s TaskStatus) String() string {
	return string(s)
}

// Task identifiers in fixed global order. The order is known in
// advance and never computed dynamically.
const (
	TaskIntake          = "intake"
	TaskVerification    = "verification"
	TaskPolicySearch    = "policy_search"
	TaskEvidenceMapping = "evidence_mapping"
	TaskRecommendation  = "recommendation"
	TaskHumanDecision   = "human_decision"
	TaskNotification    = "notification"
)

// TaskOrder returns the fixed total order of pipeline tasks
func TaskOrder() []string {
	return []string{
		TaskIntake,
		TaskVerification,
		TaskPolicySearch,
		TaskEvidenceMapping,
		TaskRecommendation,
		TaskHumanDecision,
		TaskNotification,
	}
}

// Ledger is the serializable view of a run's task ledger
type Ledger struct {
	RunID string        `json:"run_id"`
	Tasks []LedgerEntry `json:"tasks"`
}

// LedgerEntry mirrors TaskRecord in the ledger persistence format
type LedgerEntry struct {
	ID          string     `json:"id"`
	Status      TaskStatus `json:"status"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}
