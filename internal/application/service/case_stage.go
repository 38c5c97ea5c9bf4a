package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/medbridge/priorauth/internal/application/port"
	"github.com/medbridge/priorauth/internal/domain/entity"
)

// CaseStage holds submitted intake requests until the intake task
// consumes them. In-memory only: if the process dies between run
// creation and intake completion, the operator resubmits the case.
type CaseStage struct {
	mu    sync.RWMutex
	cases map[string]*entity.CaseIntake
}

// NewCaseStage creates an empty case stage
func NewCaseStage() *CaseStage {
	return &CaseStage{cases: make(map[string]*entity.CaseIntake)}
}

// Stage stores the intake request for its case
func (s *CaseStage) Stage(intake *entity.CaseIntake) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases[intake.CaseID] = intake
}

// Fetch returns the staged intake for the case
func (s *CaseStage) Fetch(ctx context.Context, caseID string) (*entity.CaseIntake, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	intake, ok := s.cases[caseID]
	if !ok {
		return nil, fmt.Errorf("no staged intake for case %s, resubmit the case", caseID)
	}
	return intake, nil
}

// Remove drops the staged intake once the run no longer needs it
func (s *CaseStage) Remove(caseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cases, caseID)
}

// Verify interface compliance
var _ port.CaseSource = (*CaseStage)(nil)
