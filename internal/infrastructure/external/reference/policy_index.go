package reference

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/medbridge/priorauth/internal/application/port"
	"github.com/medbridge/priorauth/internal/domain/entity"
)

// policyRecord is one coverage policy in the index file
type policyRecord struct {
	ID       string             `json:"id"`
	Title    string             `json:"title"`
	Keywords []string           `json:"keywords"`
	Criteria []entity.Criterion `json:"criteria"`
}

// PolicyIndex implements port.PolicySearch as keyword overlap over a
// JSON policy library. Score is the fraction of search terms that match
// a policy keyword.
type PolicyIndex struct {
	policies []policyRecord
	logger   *zap.Logger
}

// NewPolicyIndex loads the policy library from a JSON file
func NewPolicyIndex(path string, logger *zap.Logger) (*PolicyIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy index: %w", err)
	}

	var file struct {
		Policies []policyRecord `json:"policies"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse policy index: %w", err)
	}

	logger.Info("Policy index loaded",
		zap.String("path", path),
		zap.Int("policies", len(file.Policies)))

	return &PolicyIndex{policies: file.Policies, logger: logger}, nil
}

// Search scores every policy against the terms and returns matches
// ranked best-first. Policies with no matching term are omitted.
func (idx *PolicyIndex) Search(ctx context.Context, terms []string) ([]entity.PolicyCandidate, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	var candidates []entity.PolicyCandidate
	for _, p := range idx.policies {
		score := matchScore(terms, p.Keywords)
		if score == 0 {
			continue
		}
		candidates = append(candidates, entity.PolicyCandidate{
			ID:       p.ID,
			Title:    p.Title,
			Score:    score,
			Criteria: p.Criteria,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	return candidates, nil
}

// matchScore is the fraction of terms matching any keyword,
// case-insensitive and substring-tolerant in both directions.
func matchScore(terms, keywords []string) float64 {
	if len(terms) == 0 || len(keywords) == 0 {
		return 0
	}

	matched := 0
	for _, term := range terms {
		t := strings.ToLower(term)
		for _, kw := range keywords {
			k := strings.ToLower(kw)
			if strings.Contains(t, k) || strings.Contains(k, t) {
				matched++
				break
			}
		}
	}

	return float64(matched) / float64(len(terms))
}

// Verify interface compliance
var _ port.PolicySearch = (*PolicyIndex)(nil)
