package entity

// ProviderCheck is the result of a provider-verification lookup
type ProviderCheck struct {
	ProviderID     string `json:"provider_id"`
	Found          bool   `json:"found"`
	Active         bool   `json:"active"`
	SpecialtyMatch bool   `json:"specialty_match"`
	Specialty      string `json:"specialty,omitempty"`
}

// OK reports whether the provider passed all three checks
func (p ProviderCheck) OK() bool {
	return p.Found && p.Active && p.SpecialtyMatch
}

// CodeCheck is the per-code result of a code-validation lookup
type CodeCheck struct {
	Code        string `json:"code"`
	Valid       bool   `json:"valid"`
	Description string `json:"description,omitempty"`
}

// PolicyCandidate is one ranked result from a coverage-policy search
type PolicyCandidate struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Score    float64     `json:"score"`
	Criteria []Criterion `json:"criteria"`
}
