package tasks

import (
	"fmt"

	"github.com/medbridge/priorauth/internal/application/sequencer"
	"github.com/medbridge/priorauth/internal/domain/entity"
)

// registry maps the fixed task order to its handlers. The order comes
// from entity.TaskOrder and is never recomputed.
type registry struct {
	order    []string
	handlers map[string]sequencer.TaskHandler
}

// NewRegistry builds the task registry, requiring exactly one handler
// per task in the pipeline order.
func NewRegistry(handlers ...sequencer.TaskHandler) (sequencer.Registry, error) {
	r := &registry{
		order:    entity.TaskOrder(),
		handlers: make(map[string]sequencer.TaskHandler, len(handlers)),
	}

	for _, h := range handlers {
		if _, dup := r.handlers[h.ID()]; dup {
			return nil, fmt.Errorf("duplicate handler for task %s", h.ID())
		}
		r.handlers[h.ID()] = h
	}

	for _, id := range r.order {
		if _, ok := r.handlers[id]; !ok {
			return nil, fmt.Errorf("no handler registered for task %s", id)
		}
	}
	if len(r.handlers) != len(r.order) {
		return nil, fmt.Errorf("handler registered for a task outside the pipeline order")
	}

	return r, nil
}

func (r *registry) Order() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *registry) Handler(id string) (sequencer.TaskHandler, bool) {
	h, ok := r.handlers[id]
	return h, ok
}
