package entity

import "time"

// Outcome is the decision space of the resolver. Every outcome is a
// candidate until a human override record confirms or corrects it.
type Outcome string

const (
	OutcomeApproveCandidate Outcome = "APPROVE_CANDIDATE"
	OutcomePend             Outcome = "PEND"
	OutcomeDenyCandidate    Outcome = "DENY_CANDIDATE"
)

// IsDeny reports whether the outcome is deny-type
func (o Outcome) IsDeny() bool {
	return o == OutcomeDenyCandidate
}

// IsValid returns true for a known outcome
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeApproveCandidate, OutcomePend, OutcomeDenyCandidate:
		return true
	}
	return false
}

// Gate identifiers in resolver order
const (
	GateProvider   = "provider"
	GateCodes      = "codes"
	GatePolicy     = "policy"
	GateCriteria   = "criteria"
	GateConfidence = "confidence"
)

// Gap is one structured reason a gate did not pass
type Gap struct {
	Description string `json:"description"`
	Gate        string `json:"gate"`
	Critical    bool   `json:"critical"`
}

// Decision is the resolver output: an outcome candidate, the overall
// confidence that produced it, and the gap list explaining why. A
// reviewer always sees the gaps, never a bare outcome.
type Decision struct {
	Outcome    Outcome   `json:"outcome"`
	Confidence float64   `json:"confidence"`
	Tier       string    `json:"tier"`
	Flagged    bool      `json:"flagged"`
	Gaps       []Gap     `json:"gaps"`
	Rationale  string    `json:"rationale"`
	ProposedAt time.Time `json:"proposed_at"`
}
