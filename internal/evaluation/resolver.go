package evaluation

import (
	"fmt"
	"strings"
	"time"

	"github.com/medbridge/priorauth/internal/domain/entity"
)

// ResolverConfig controls the decision resolver's outcome space.
// DENY_CANDIDATE is suppressed unless AllowDeny is set; attempting to
// configure the deny path with nonsensical thresholds fails here, at
// construction, never at decision time.
type ResolverConfig struct {
	// AllowDeny enables the DENY_CANDIDATE path on the criteria gate.
	// Default off: sub-threshold criteria always emit PEND.
	AllowDeny bool `mapstructure:"allow_deny"`

	// DenyMinConfidence is the minimum overall confidence for a deny
	// candidate when AllowDeny is set
	DenyMinConfidence float64 `mapstructure:"deny_min_confidence"`
}

// DefaultResolverConfig returns the default configuration: deny path
// disabled entirely.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		AllowDeny:         false,
		DenyMinConfidence: 90,
	}
}

// Validate checks the configuration for invariant violations
func (c ResolverConfig) Validate() error {
	if c.AllowDeny && (c.DenyMinConfidence < 60 || c.DenyMinConfidence > 100) {
		return fmt.Errorf("deny_min_confidence must be between 60 and 100 when deny is allowed, got %.1f", c.DenyMinConfidence)
	}
	return nil
}

// ResolverInput carries everything the gate sequence consumes. The
// resolver never performs I/O; partial lookup failures upstream appear
// here as failed checks.
type ResolverInput struct {
	Provider            entity.ProviderCheck
	Codes               []entity.CodeCheck
	PolicyFound         bool
	Evaluations         *entity.EvaluationSet
	AllEvidenceGathered bool
	Confidence          float64 // overall 0-100 from the aggregator
	Tier                Tier
}

// Resolver executes the ordered gate sequence: provider, codes,
// policy, criteria, confidence. Evaluation stops at the first failing
// gate; the confidence gate is only reached when the criteria gate
// passes. Deterministic and pure.
type Resolver struct {
	cfg ResolverConfig
}

// NewResolver creates a resolver, rejecting invalid configurations
func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid resolver config: %w", err)
	}
	return &Resolver{cfg: cfg}, nil
}

// Criteria gate thresholds
const (
	criteriaPassPct       = 80
	criteriaBorderlinePct = 60
)

// Confidence gate thresholds
const (
	confidenceApprovePct = 80
	confidenceFlaggedPct = 60
)

// Resolve runs the gate sequence and returns the candidate decision
// with its gap list. Every non-passing gate appends a critical gap so
// a reviewer always sees why the outcome was reached.
func (r *Resolver) Resolve(in ResolverInput) *entity.Decision {
	d := &entity.Decision{
		Confidence: in.Confidence,
		Tier:       string(in.Tier),
		Gaps:       []entity.Gap{},
		ProposedAt: time.Now().UTC(),
	}

	// Gate 1: provider must be found, active, and specialty-appropriate
	if !in.Provider.OK() {
		d.Outcome = entity.OutcomePend
		d.Gaps = append(d.Gaps, entity.Gap{
			Description: providerGapDescription(in.Provider),
			Gate:        entity.GateProvider,
			Critical:    true,
		})
		d.Rationale = "pended for credentialing: provider verification failed"
		return d
	}

	// Gate 2: every diagnosis/procedure code must validate
	if invalid := invalidCodes(in.Codes); len(invalid) > 0 {
		d.Outcome = entity.OutcomePend
		d.Gaps = append(d.Gaps, entity.Gap{
			Description: fmt.Sprintf("code clarification required for: %s", strings.Join(invalid, ", ")),
			Gate:        entity.GateCodes,
			Critical:    true,
		})
		d.Rationale = "pended for code clarification"
		return d
	}

	// Gate 3: an applicable coverage policy must have been located
	if !in.PolicyFound {
		d.Outcome = entity.OutcomePend
		d.Gaps = append(d.Gaps, entity.Gap{
			Description: "no applicable coverage policy located",
			Gate:        entity.GatePolicy,
			Critical:    true,
		})
		d.Rationale = "pended for policy review"
		return d
	}

	// Gate 4: clinical criteria percentage
	pct := 0.0
	if in.Evaluations != nil {
		pct = in.Evaluations.PercentMet
	}

	switch {
	case pct >= criteriaPassPct:
		// continue to the confidence gate
	case pct >= criteriaBorderlinePct:
		d.Outcome = entity.OutcomePend
		d.Gaps = append(d.Gaps, entity.Gap{
			Description: fmt.Sprintf("borderline criteria satisfaction (%.0f%% met): additional documentation required", pct),
			Gate:        entity.GateCriteria,
			Critical:    true,
		})
		d.Rationale = "pended: borderline clinical criteria"
		return d
	default:
		if r.cfg.AllowDeny && in.AllEvidenceGathered && in.Confidence >= r.cfg.DenyMinConfidence {
			d.Outcome = entity.OutcomeDenyCandidate
			d.Gaps = append(d.Gaps, entity.Gap{
				Description: fmt.Sprintf("significant criteria gaps (%.0f%% met) with complete evidence", pct),
				Gate:        entity.GateCriteria,
				Critical:    true,
			})
			d.Rationale = "deny candidate: criteria not satisfied on complete evidence"
			return d
		}
		d.Outcome = entity.OutcomePend
		d.Gaps = append(d.Gaps, entity.Gap{
			Description: fmt.Sprintf("significant gaps in criteria satisfaction (%.0f%% met)", pct),
			Gate:        entity.GateCriteria,
			Critical:    true,
		})
		d.Rationale = "pended: significant criteria gaps"
		return d
	}

	// Gate 5: overall confidence, always evaluated once reached
	switch {
	case in.Confidence >= confidenceApprovePct:
		d.Outcome = entity.OutcomeApproveCandidate
		d.Rationale = fmt.Sprintf("approve candidate: %.0f%% criteria met, overall confidence %.1f", pct, in.Confidence)
	case in.Confidence >= confidenceFlaggedPct:
		d.Outcome = entity.OutcomeApproveCandidate
		d.Flagged = true
		d.Rationale = fmt.Sprintf("approve candidate flagged for review: overall confidence %.1f in the medium band", in.Confidence)
	default:
		d.Outcome = entity.OutcomePend
		d.Gaps = append(d.Gaps, entity.Gap{
			Description: fmt.Sprintf("low overall confidence (%.1f)", in.Confidence),
			Gate:        entity.GateConfidence,
			Critical:    true,
		})
		d.Rationale = "pended: low overall confidence"
	}

	return d
}

func providerGapDescription(p entity.ProviderCheck) string {
	switch {
	case !p.Found:
		return fmt.Sprintf("provider %s not found in registry: credentialing required", p.ProviderID)
	case !p.Active:
		return fmt.Sprintf("provider %s is inactive: credentialing required", p.ProviderID)
	default:
		return fmt.Sprintf("provider %s specialty does not match the requested service: credentialing required", p.ProviderID)
	}
}

func invalidCodes(codes []entity.CodeCheck) []string {
	var invalid []string
	for _, c := range codes {
		if !c.Valid {
			invalid = append(invalid, c.Code)
		}
	}
	return invalid
}
