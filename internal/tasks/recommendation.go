package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/medbridge/priorauth/internal/application/port"
	"github.com/medbridge/priorauth/internal/domain/entity"
	"github.com/medbridge/priorauth/internal/evaluation"
)

// RecommendationHandler derives the five confidence sub-scores from the
// upstream checkpoints, aggregates them, and runs the decision resolver
// to produce the candidate outcome.
type RecommendationHandler struct {
	checkpoints port.CheckpointRepository
	docQuality  port.DocQualityScorer
	aggregator  *evaluation.Aggregator
	resolver    *evaluation.Resolver
	logger      *zap.Logger
}

// NewRecommendationHandler creates the recommendation task handler
func NewRecommendationHandler(
	checkpoints port.CheckpointRepository,
	docQuality port.DocQualityScorer,
	aggregator *evaluation.Aggregator,
	resolver *evaluation.Resolver,
	logger *zap.Logger,
) *RecommendationHandler {
	return &RecommendationHandler{
		checkpoints: checkpoints,
		docQuality:  docQuality,
		aggregator:  aggregator,
		resolver:    resolver,
		logger:      logger,
	}
}

func (h *RecommendationHandler) ID() string {
	return entity.TaskRecommendation
}

func (h *RecommendationHandler) Execute(ctx context.Context, run *entity.Run) (json.RawMessage, error) {
	var intake IntakePayload
	if err := loadCheckpoint(ctx, h.checkpoints, run.ID, entity.TaskIntake, &intake); err != nil {
		return nil, err
	}
	var verification VerificationPayload
	if err := loadCheckpoint(ctx, h.checkpoints, run.ID, entity.TaskVerification, &verification); err != nil {
		return nil, err
	}
	var policy PolicyPayload
	if err := loadCheckpoint(ctx, h.checkpoints, run.ID, entity.TaskPolicySearch, &policy); err != nil {
		return nil, err
	}
	var evidence EvidencePayload
	if err := loadCheckpoint(ctx, h.checkpoints, run.ID, entity.TaskEvidenceMapping, &evidence); err != nil {
		return nil, err
	}

	payload := RecommendationPayload{
		EvidenceComplete: len(verification.Notes) == 0 && policy.Found,
	}

	docScore, err := h.docQuality.Score(ctx, intake.Case.ClinicalSummary, intake.Case.Facts)
	if err != nil {
		// degrade: score zero pulls the overall confidence down and the
		// deny path stays closed without complete evidence
		docScore = 0
		payload.EvidenceComplete = false
		payload.Notes = append(payload.Notes, fmt.Sprintf("documentation scoring failed: %v", err))
		h.logger.Warn("Documentation scoring degraded",
			zap.String("run_id", run.ID),
			zap.Error(err))
	}

	payload.SubScores = evaluation.SubScores{
		Provider:         providerScore(verification.Provider),
		Codes:            codesScore(verification.Codes),
		PolicyMatch:      policyScore(policy),
		ClinicalCriteria: evidence.Evaluations.PercentMet,
		Documentation:    docScore,
	}

	overall := h.aggregator.Aggregate(payload.SubScores)
	tier := h.aggregator.TierFor(overall)

	decision := h.resolver.Resolve(evaluation.ResolverInput{
		Provider:            verification.Provider,
		Codes:               verification.Codes,
		PolicyFound:         policy.Found,
		Evaluations:         &evidence.Evaluations,
		AllEvidenceGathered: payload.EvidenceComplete,
		Confidence:          overall,
		Tier:                tier,
	})
	payload.Decision = *decision

	h.logger.Info("Recommendation proposed",
		zap.String("run_id", run.ID),
		zap.String("outcome", string(decision.Outcome)),
		zap.Float64("confidence", overall),
		zap.String("tier", string(tier)),
		zap.Bool("flagged", decision.Flagged),
		zap.Int("gaps", len(decision.Gaps)))

	return json.Marshal(payload)
}

// providerScore grades the provider check: each failed stage drops the
// sub-score further from full credit.
func providerScore(p entity.ProviderCheck) float64 {
	switch {
	case !p.Found:
		return 0
	case !p.Active:
		return 30
	case !p.SpecialtyMatch:
		return 60
	default:
		return 100
	}
}

// codesScore is the fraction of codes that validated, scaled to 0-100
func codesScore(codes []entity.CodeCheck) float64 {
	if len(codes) == 0 {
		return 0
	}
	valid := 0
	for _, c := range codes {
		if c.Valid {
			valid++
		}
	}
	return float64(valid) / float64(len(codes)) * 100
}

// policyScore scales the best candidate's relevance score to 0-100
func policyScore(p PolicyPayload) float64 {
	if !p.Found || p.Policy == nil {
		return 0
	}
	s := p.Policy.Score * 100
	if s > 100 {
		return 100
	}
	if s < 0 {
		return 0
	}
	return s
}
