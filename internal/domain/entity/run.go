package entity

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Run represents one execution of the review pipeline for one
// prior-authorization case. The sequencer is the only component
// that mutates a Run after creation.
type Run struct {
	ID        string    `json:"id"`
	CaseID    string    `json:"case_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRun creates a run for a case with a fresh identifier
func NewRun(caseID string) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:        generateRunID(),
		CaseID:    caseID,
		Status:    RunStatusInitialized,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Run status constants. Transitions are forward-only and enforced by
// the workflow state machine.
const (
	RunStatusInitialized      = "initialized"
	RunStatusInProgress       = "in_progress"
	RunStatusSectionsComplete = "sections_complete"
	RunStatusComplete         = "complete"
)

func generateRunID() string {
	b := make([]byte, 12)
	rand.Read(b)
	return "run-" + hex.EncodeToString(b)
}
