package port

import (
	"context"

	"github.com/medbridge/priorauth/internal/domain/entity"
)

// CaseSource supplies the structured intake request for a case. The
// intake task reads from here exactly once; everything downstream
// reads checkpoints.
type CaseSource interface {
	Fetch(ctx context.Context, caseID string) (*entity.CaseIntake, error)
}

// ProviderRegistry defines the provider-verification lookup
type ProviderRegistry interface {
	Verify(ctx context.Context, providerID, requestedService string) (*entity.ProviderCheck, error)
}

// CodeValidator defines the diagnosis/procedure code lookup
type CodeValidator interface {
	Validate(ctx context.Context, codes []string) ([]entity.CodeCheck, error)
}

// PolicySearch defines the coverage-policy lookup. Results are ranked
// best-first.
type PolicySearch interface {
	Search(ctx context.Context, terms []string) ([]entity.PolicyCandidate, error)
}

// DocQualityScorer rates the completeness and coherence of the case
// documentation on a 0-100 scale.
type DocQualityScorer interface {
	Score(ctx context.Context, summary string, facts []entity.EvidenceFact) (float64, error)
}

// ReportFormatter renders a human-readable report from the final
// decision and the criterion evaluations. Consumes read-only
// checkpoint data.
type ReportFormatter interface {
	Format(ctx context.Context, run *entity.Run, decision *entity.Decision, evals *entity.EvaluationSet) (string, error)
}
