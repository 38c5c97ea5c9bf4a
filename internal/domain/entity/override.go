package entity

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingJustification is returned when an override lacks the
	// mandatory justification text
	ErrMissingJustification = errors.New("override requires a justification")

	// ErrMissingClinicalBasis is returned when an override into or out
	// of a deny-type outcome lacks a clinical basis
	ErrMissingClinicalBasis = errors.New("override involving a deny outcome requires a clinical basis")
)

// Override is a human-authored confirmation or correction of a
// candidate decision. Once an override exists the human outcome is
// authoritative; the candidate is retained for audit only. Immutable
// after creation.
type Override struct {
	ID            int64     `json:"id"`
	RunID         string    `json:"run_id"`
	PriorOutcome  Outcome   `json:"prior_outcome"`
	FinalOutcome  Outcome   `json:"final_outcome"`
	Justification string    `json:"justification"`
	ClinicalBasis string    `json:"clinical_basis,omitempty"`
	ActorID       string    `json:"actor_id"`
	ActorRole     string    `json:"actor_role"`
	CreatedAt     time.Time `json:"created_at"`
}

// Validate enforces the override rules: a justification is always
// mandatory, the actor must be identified, and crossing into or out of
// a deny-type outcome additionally requires a clinical basis.
func (o *Override) Validate() error {
	if o.RunID == "" {
		return fmt.Errorf("%w: run_id", ErrMissingField)
	}
	if o.ActorID == "" {
		return fmt.Errorf("%w: actor_id", ErrMissingField)
	}
	if !o.PriorOutcome.IsValid() {
		return fmt.Errorf("invalid prior outcome: %q", o.PriorOutcome)
	}
	if !o.FinalOutcome.IsValid() {
		return fmt.Errorf("invalid final outcome: %q", o.FinalOutcome)
	}
	if o.Justification == "" {
		return ErrMissingJustification
	}
	if (o.FinalOutcome.IsDeny() || o.PriorOutcome.IsDeny()) && o.ClinicalBasis == "" {
		return ErrMissingClinicalBasis
	}
	return nil
}
