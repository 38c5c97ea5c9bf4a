package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medbridge/priorauth/internal/application/sequencer"
	"github.com/medbridge/priorauth/internal/domain/entity"
	"github.com/medbridge/priorauth/internal/evaluation"
	"github.com/medbridge/priorauth/internal/infrastructure/persistence/repository"
	"github.com/medbridge/priorauth/internal/tasks"
	"github.com/medbridge/priorauth/pkg/database"
)

// testLogger satisfies the service Logger interface
type testLogger struct{}

func (testLogger) Info(msg string, keysAndValues ...interface{})  {}
func (testLogger) Error(msg string, keysAndValues ...interface{}) {}

// Reference lookups stubbed to deterministic results so the pipeline
// runs end to end against a real database.

type okProviders struct{}

func (okProviders) Verify(ctx context.Context, providerID, requestedService string) (*entity.ProviderCheck, error) {
	return &entity.ProviderCheck{
		ProviderID: providerID, Found: true, Active: true, SpecialtyMatch: true,
	}, nil
}

type okCodes struct{}

func (okCodes) Validate(ctx context.Context, codes []string) ([]entity.CodeCheck, error) {
	checks := make([]entity.CodeCheck, len(codes))
	for i, c := range codes {
		checks[i] = entity.CodeCheck{Code: c, Valid: true}
	}
	return checks, nil
}

type onePolicySearch struct{}

func (onePolicySearch) Search(ctx context.Context, terms []string) ([]entity.PolicyCandidate, error) {
	return []entity.PolicyCandidate{{
		ID:    "pol-test",
		Title: "Test Policy",
		Score: 0.9,
		Criteria: []entity.Criterion{
			{ID: "c1", Text: "pain duration", Requirement: entity.RequirementMust, Topics: []string{"pain_duration"}},
		},
	}}, nil
}

type fixedScorer struct{}

func (fixedScorer) Score(ctx context.Context, summary string, facts []entity.EvidenceFact) (float64, error) {
	return 90, nil
}

type plainFormatter struct{}

func (plainFormatter) Format(ctx context.Context, run *entity.Run, decision *entity.Decision, evals *entity.EvaluationSet) (string, error) {
	return "determination: " + string(decision.Outcome), nil
}

func newServiceFixture(t *testing.T) ReviewService {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("../../../migrations/001_initial_schema.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	runRepo := repository.NewRunRepository(db.DB, logger)
	ledgerRepo := repository.NewLedgerRepository(db.DB, logger)
	checkpointRepo := repository.NewCheckpointRepository(db.DB, logger)
	overrideRepo := repository.NewOverrideRepository(db.DB, logger)
	txManager := repository.NewTxManager(db, logger)

	aggregator, err := evaluation.NewAggregator(evaluation.DefaultWeights())
	require.NoError(t, err)
	resolver, err := evaluation.NewResolver(evaluation.DefaultResolverConfig())
	require.NoError(t, err)

	stage := NewCaseStage()
	registry, err := tasks.NewRegistry(
		tasks.NewIntakeHandler(stage, logger),
		tasks.NewVerificationHandler(checkpointRepo, okProviders{}, okCodes{}, logger),
		tasks.NewPolicySearchHandler(checkpointRepo, onePolicySearch{}, logger),
		tasks.NewEvidenceMappingHandler(checkpointRepo, evaluation.NewCriterionEvaluator(), logger),
		tasks.NewRecommendationHandler(checkpointRepo, fixedScorer{}, aggregator, resolver, logger),
		tasks.NewHumanDecisionHandler(checkpointRepo, overrideRepo, logger),
		tasks.NewNotificationHandler(checkpointRepo, plainFormatter{}, logger),
	)
	require.NoError(t, err)

	seq := sequencer.New(runRepo, ledgerRepo, checkpointRepo, registry, logger)

	return NewReviewService(
		runRepo, ledgerRepo, checkpointRepo, overrideRepo,
		txManager, stage, seq, nil, testLogger{},
	)
}

func supportedIntake() *entity.CaseIntake {
	return &entity.CaseIntake{
		CaseID:           "case-e2e",
		MemberID:         "mem-1",
		ProviderID:       "prov-1",
		RequestedService: "mri_lumbar_spine",
		DiagnosisCodes:   []string{"M54.5"},
		ProcedureCodes:   []string{"72148"},
		ClinicalSummary:  "eight weeks of low back pain despite conservative therapy",
		Facts: []entity.EvidenceFact{
			{
				ID:         "f1",
				Statement:  "pain persisting for eight weeks",
				Topics:     []string{"pain_duration"},
				Kind:       entity.FactSupporting,
				Directness: entity.DirectnessDirect,
				Source:     entity.Provenance{Document: "chart.pdf", Page: 2},
			},
		},
	}
}

func TestSubmitCaseCreatesRunAndLedger(t *testing.T) {
	ctx := context.Background()
	svc := newServiceFixture(t)

	run, err := svc.SubmitCase(ctx, supportedIntake())
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, entity.RunStatusInitialized, run.Status)

	p, err := svc.Progress(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Completed)
	assert.Equal(t, len(entity.TaskOrder()), p.Remaining)
	assert.Equal(t, entity.TaskIntake, p.NextTask)
}

func TestSubmitCaseRejectsActiveDuplicate(t *testing.T) {
	ctx := context.Background()
	svc := newServiceFixture(t)

	_, err := svc.SubmitCase(ctx, supportedIntake())
	require.NoError(t, err)

	_, err = svc.SubmitCase(ctx, supportedIntake())
	require.ErrorIs(t, err, ErrRunAlreadyExists)
}

func TestSubmitCaseValidatesIntake(t *testing.T) {
	ctx := context.Background()
	svc := newServiceFixture(t)

	bad := supportedIntake()
	bad.MemberID = ""

	_, err := svc.SubmitCase(ctx, bad)
	require.ErrorIs(t, err, entity.ErrMissingField)
}

func TestExecuteHaltsAtHumanDecision(t *testing.T) {
	ctx := context.Background()
	svc := newServiceFixture(t)

	run, err := svc.SubmitCase(ctx, supportedIntake())
	require.NoError(t, err)

	p, err := svc.Execute(ctx, run.ID)
	require.NoError(t, err, "the human-decision halt is expected, not an error")
	assert.Equal(t, 5, p.Completed)
	assert.Equal(t, entity.TaskHumanDecision, p.NextTask)
	assert.Equal(t, entity.RunStatusSectionsComplete, p.Status)

	rec, err := svc.GetDecision(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeApproveCandidate, rec.Decision.Outcome)
	assert.True(t, rec.EvidenceComplete)
	// 0.20*100 + 0.15*100 + 0.20*90 + 0.35*100 + 0.10*90 = 97
	assert.InDelta(t, 97.0, rec.Decision.Confidence, 1e-9)
}

func TestGetDecisionBeforeRecommendation(t *testing.T) {
	ctx := context.Background()
	svc := newServiceFixture(t)

	run, err := svc.SubmitCase(ctx, supportedIntake())
	require.NoError(t, err)

	_, err = svc.GetDecision(ctx, run.ID)
	require.ErrorIs(t, err, ErrNoDecisionYet)

	_, err = svc.GetDecision(ctx, "run-missing")
	require.ErrorIs(t, err, sequencer.ErrRunNotFound)
}

func TestRecordOverrideCompletesRun(t *testing.T) {
	ctx := context.Background()
	svc := newServiceFixture(t)

	run, err := svc.SubmitCase(ctx, supportedIntake())
	require.NoError(t, err)
	_, err = svc.Execute(ctx, run.ID)
	require.NoError(t, err)

	override, err := svc.RecordOverride(ctx, run.ID, OverrideRequest{
		FinalOutcome:  entity.OutcomeApproveCandidate,
		Justification: "candidate confirmed on chart review",
		ActorID:       "reviewer-1",
		ActorRole:     "md_reviewer",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeApproveCandidate, override.PriorOutcome)
	assert.NotZero(t, override.ID)

	p, err := svc.Progress(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, p.Done())
	assert.Equal(t, entity.RunStatusComplete, p.Status)

	report, err := svc.GetReport(ctx, run.ID)
	require.NoError(t, err)
	assert.Contains(t, report.Report, "APPROVE_CANDIDATE")
	assert.False(t, report.NotifiedAt.IsZero())
}

func TestRecordOverrideValidation(t *testing.T) {
	ctx := context.Background()
	svc := newServiceFixture(t)

	run, err := svc.SubmitCase(ctx, supportedIntake())
	require.NoError(t, err)
	_, err = svc.Execute(ctx, run.ID)
	require.NoError(t, err)

	_, err = svc.RecordOverride(ctx, run.ID, OverrideRequest{
		FinalOutcome: entity.OutcomeApproveCandidate,
		ActorID:      "reviewer-1",
	})
	require.ErrorIs(t, err, entity.ErrMissingJustification)

	// overriding into deny needs a clinical basis
	_, err = svc.RecordOverride(ctx, run.ID, OverrideRequest{
		FinalOutcome:  entity.OutcomeDenyCandidate,
		Justification: "documentation contradicts the request",
		ActorID:       "reviewer-1",
		ActorRole:     "md_reviewer",
	})
	require.ErrorIs(t, err, entity.ErrMissingClinicalBasis)
}

func TestRecordOverrideIsSingleUse(t *testing.T) {
	ctx := context.Background()
	svc := newServiceFixture(t)

	run, err := svc.SubmitCase(ctx, supportedIntake())
	require.NoError(t, err)
	_, err = svc.Execute(ctx, run.ID)
	require.NoError(t, err)

	_, err = svc.RecordOverride(ctx, run.ID, OverrideRequest{
		FinalOutcome:  entity.OutcomeApproveCandidate,
		Justification: "confirmed",
		ActorID:       "reviewer-1",
		ActorRole:     "md_reviewer",
	})
	require.NoError(t, err)

	_, err = svc.RecordOverride(ctx, run.ID, OverrideRequest{
		FinalOutcome:  entity.OutcomePend,
		Justification: "changed my mind",
		ActorID:       "reviewer-2",
		ActorRole:     "md_reviewer",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already has a recorded decision")
}

func TestCaseStageLifecycle(t *testing.T) {
	ctx := context.Background()
	stage := NewCaseStage()

	_, err := stage.Fetch(ctx, "case-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resubmit the case")

	intake := supportedIntake()
	stage.Stage(intake)

	got, err := stage.Fetch(ctx, intake.CaseID)
	require.NoError(t, err)
	assert.Equal(t, intake.CaseID, got.CaseID)

	stage.Remove(intake.CaseID)
	_, err = stage.Fetch(ctx, intake.CaseID)
	require.Error(t, err)
}

func TestListActiveRunsExcludesComplete(t *testing.T) {
	ctx := context.Background()
	svc := newServiceFixture(t)

	run, err := svc.SubmitCase(ctx, supportedIntake())
	require.NoError(t, err)

	active, err := svc.ListActiveRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, run.ID, active[0].ID)

	_, err = svc.Execute(ctx, run.ID)
	require.NoError(t, err)
	_, err = svc.RecordOverride(ctx, run.ID, OverrideRequest{
		FinalOutcome:  entity.OutcomeApproveCandidate,
		Justification: "confirmed",
		ActorID:       "reviewer-1",
		ActorRole:     "md_reviewer",
	})
	require.NoError(t, err)

	active, err = svc.ListActiveRuns(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, active)
}
