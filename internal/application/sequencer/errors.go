package sequencer

import "errors"

var (
	// ErrRunNotFound is returned when the run identifier is unknown
	ErrRunNotFound = errors.New("run not found")

	// ErrInvariantViolation indicates corrupted orchestration state,
	// e.g. more than one in-progress task in a run's ledger. Never
	// recoverable locally; callers must abort.
	ErrInvariantViolation = errors.New("orchestration invariant violated")

	// ErrUnknownTask is returned when a ledger task has no registered handler
	ErrUnknownTask = errors.New("unknown task")

	// ErrTaskNotInProgress is returned when Complete targets a task that
	// is not currently in-progress
	ErrTaskNotInProgress = errors.New("task is not in progress")
)
