package sequencer

import (
	"context"
	"encoding/json"

	"github.com/medbridge/priorauth/internal/domain/entity"
)

// TaskHandler executes the domain logic of one pipeline task. Execution
// must tolerate being retried from scratch: the sequencer provides
// at-least-once semantics at task granularity. Handlers read prior
// results exclusively from checkpoints, never from raw upstream inputs.
type TaskHandler interface {
	// ID returns the task identifier this handler serves
	ID() string

	// Execute runs the task and returns the checkpoint payload
	Execute(ctx context.Context, run *entity.Run) (json.RawMessage, error)
}

// Registry exposes the fixed total task order and the handler for each
// task. The order is established at construction and never recomputed.
type Registry interface {
	// Order returns task identifiers in execution order
	Order() []string

	// Handler returns the handler for a task identifier
	Handler(id string) (TaskHandler, bool)
}
