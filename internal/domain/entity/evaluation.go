package entity

// Requirement tags a criterion as mandatory or advisory
type Requirement string

const (
	RequirementMust   Requirement = "MUST"
	RequirementShould Requirement = "SHOULD"
)

// GroupMode controls how logically related criteria combine
type GroupMode string

const (
	GroupAll GroupMode = "all" // every member must be MET
	GroupAny GroupMode = "any" // at least one member must be MET
)

// Criterion is one clause of a coverage policy. Criteria sharing a
// non-empty GroupID combine under the group's mode.
type Criterion struct {
	ID          string      `json:"id"`
	Text        string      `json:"text"`
	Requirement Requirement `json:"requirement"`
	GroupID     string      `json:"group_id,omitempty"`
	GroupMode   GroupMode   `json:"group_mode,omitempty"`
	Topics      []string    `json:"topics,omitempty"`
}

// FactKind classifies how an evidence fact relates to a criterion
type FactKind string

const (
	FactSupporting    FactKind = "supporting"
	FactContradicting FactKind = "contradicting"
	// FactAbsence is a documented absence statement ("no history of X"),
	// distinct from evidence simply not being found.
	FactAbsence FactKind = "absence"
)

// Directness grades how directly a fact speaks to a criterion
type Directness string

const (
	DirectnessDirect     Directness = "direct"     // scores 90-100
	DirectnessStrong     Directness = "strong"     // scores 70-89
	DirectnessReasonable Directness = "reasonable" // scores 50-69
	DirectnessWeak       Directness = "weak"       // scores <50
)

// Provenance records where an evidence fact came from
type Provenance struct {
	Document string `json:"document"`
	Section  string `json:"section,omitempty"`
	Page     int    `json:"page,omitempty"`
}

// EvidenceFact is one structured clinical fact with provenance
type EvidenceFact struct {
	ID         string     `json:"id"`
	Statement  string     `json:"statement"`
	Topics     []string   `json:"topics"`
	Kind       FactKind   `json:"kind"`
	Directness Directness `json:"directness"`
	Source     Provenance `json:"source"`
}

// Verdict is the per-criterion evaluation outcome
type Verdict string

const (
	VerdictMet          Verdict = "MET"
	VerdictNotMet       Verdict = "NOT_MET"
	VerdictInsufficient Verdict = "INSUFFICIENT"
)

// EvidenceRef is one supporting evidence snippet with provenance,
// attached to a criterion evaluation in order of relevance.
type EvidenceRef struct {
	FactID    string     `json:"fact_id"`
	Statement string     `json:"statement"`
	Source    Provenance `json:"source"`
}

// CriterionEvaluation is the immutable record of evaluating one
// criterion against the case evidence.
type CriterionEvaluation struct {
	Criterion  Criterion     `json:"criterion"`
	Verdict    Verdict       `json:"verdict"`
	Evidence   []EvidenceRef `json:"evidence"`
	Confidence int           `json:"confidence"` // 0-100
	Notes      string        `json:"notes,omitempty"`
}

// EvaluationSet is the full output of the criterion evaluator for one
// run, plus the derived percent-MET scalar consumed by the decision
// resolver. Group verdicts collapse grouped criteria into one unit.
type EvaluationSet struct {
	Evaluations   []CriterionEvaluation `json:"evaluations"`
	GroupVerdicts map[string]Verdict    `json:"group_verdicts,omitempty"`
	PercentMet    float64               `json:"percent_met"`
}
