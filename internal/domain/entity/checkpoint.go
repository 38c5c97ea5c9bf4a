package entity

import (
	"encoding/json"
	"time"
)

// Checkpoint is the durable output of a completed task, keyed by
// (run_id, task_id, version). Once written it is immutable; a re-run
// of the same task writes a new version rather than mutating history.
// Downstream tasks read only from checkpoints of prior tasks, never
// from raw upstream inputs.
type Checkpoint struct {
	RunID     string          `json:"run_id"`
	TaskID    string          `json:"task_id"`
	Version   int             `json:"version"`
	WrittenAt time.Time       `json:"written_at"`
	Payload   json.RawMessage `json:"payload"`
}

// Decode unmarshals the checkpoint payload into v
func (c *Checkpoint) Decode(v interface{}) error {
	return json.Unmarshal(c.Payload, v)
}
