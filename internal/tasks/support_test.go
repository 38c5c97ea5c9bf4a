package tasks

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/medbridge/priorauth/internal/domain/entity"
)

// memCheckpoints is an append-only in-memory checkpoint store
type memCheckpoints struct {
	cps map[string][]*entity.Checkpoint
}

func newMemCheckpoints() *memCheckpoints {
	return &memCheckpoints{cps: make(map[string][]*entity.Checkpoint)}
}

func (m *memCheckpoints) key(runID, taskID string) string { return runID + "/" + taskID }

func (m *memCheckpoints) Write(ctx context.Context, cp *entity.Checkpoint) error {
	k := m.key(cp.RunID, cp.TaskID)
	cp.Version = len(m.cps[k]) + 1
	m.cps[k] = append(m.cps[k], cp)
	return nil
}

func (m *memCheckpoints) Latest(ctx context.Context, runID, taskID string) (*entity.Checkpoint, error) {
	versions := m.cps[m.key(runID, taskID)]
	if len(versions) == 0 {
		return nil, nil
	}
	return versions[len(versions)-1], nil
}

func (m *memCheckpoints) History(ctx context.Context, runID, taskID string) ([]*entity.Checkpoint, error) {
	return m.cps[m.key(runID, taskID)], nil
}

// seed marshals v and stores it as the latest checkpoint for the task
func (m *memCheckpoints) seed(t *testing.T, runID, taskID string, v interface{}) {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, m.Write(context.Background(), &entity.Checkpoint{
		RunID:   runID,
		TaskID:  taskID,
		Payload: payload,
	}))
}

// Port stubs with injectable results

type stubProviders struct {
	check *entity.ProviderCheck
	err   error
}

func (s *stubProviders) Verify(ctx context.Context, providerID, requestedService string) (*entity.ProviderCheck, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.check, nil
}

type stubCodes struct {
	checks []entity.CodeCheck
	err    error
}

func (s *stubCodes) Validate(ctx context.Context, codes []string) ([]entity.CodeCheck, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.checks, nil
}

type stubSearch struct {
	candidates []entity.PolicyCandidate
	err        error
}

func (s *stubSearch) Search(ctx context.Context, terms []string) ([]entity.PolicyCandidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.candidates, nil
}

type stubScorer struct {
	score float64
	err   error
}

func (s *stubScorer) Score(ctx context.Context, summary string, facts []entity.EvidenceFact) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.score, nil
}

type stubOverrides struct {
	override *entity.Override
	err      error
}

func (s *stubOverrides) Create(ctx context.Context, o *entity.Override) error {
	s.override = o
	return nil
}

func (s *stubOverrides) GetByRunID(ctx context.Context, runID string) (*entity.Override, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.override, nil
}

func testRun() *entity.Run {
	return &entity.Run{
		ID:     "run-test",
		CaseID: "case-test",
		Status: entity.RunStatusInProgress,
	}
}

func testIntake() IntakePayload {
	return IntakePayload{
		Case: entity.CaseIntake{
			CaseID:           "case-test",
			MemberID:         "mem-1",
			ProviderID:       "prov-1",
			RequestedService: "mri_lumbar_spine",
			DiagnosisCodes:   []string{"M54.5"},
			ProcedureCodes:   []string{"72148"},
			ClinicalSummary:  "six weeks of low back pain despite physical therapy",
		},
	}
}
