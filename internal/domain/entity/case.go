package entity

import "fmt"

// CaseIntake is the structured prior-authorization request as received
// from intake. Field extraction from source documents happens upstream
// and is outside this system.
type CaseIntake struct {
	CaseID           string         `json:"case_id"`
	MemberID         string         `json:"member_id"`
	ProviderID       string         `json:"provider_id"`
	RequestedService string         `json:"requested_service"`
	DiagnosisCodes   []string       `json:"diagnosis_codes"`
	ProcedureCodes   []string       `json:"procedure_codes"`
	ClinicalSummary  string         `json:"clinical_summary"`
	Facts            []EvidenceFact `json:"facts"`
}

// Validate checks required intake fields, reporting the first missing
// field by name so the operator knows what to fix.
func (c *CaseIntake) Validate() error {
	switch {
	case c.CaseID == "":
		return fmt.Errorf("%w: case_id", ErrMissingField)
	case c.MemberID == "":
		return fmt.Errorf("%w: member_id", ErrMissingField)
	case c.ProviderID == "":
		return fmt.Errorf("%w: provider_id", ErrMissingField)
	case c.RequestedService == "":
		return fmt.Errorf("%w: requested_service", ErrMissingField)
	case len(c.DiagnosisCodes) == 0:
		return fmt.Errorf("%w: diagnosis_codes", ErrMissingField)
	}
	return nil
}

// Codes returns all diagnosis and procedure codes on the case
func (c *CaseIntake) Codes() []string {
	codes := make([]string, 0, len(c.DiagnosisCodes)+len(c.ProcedureCodes))
	codes = append(codes, c.DiagnosisCodes...)
	codes = append(codes, c.ProcedureCodes...)
	return codes
}
