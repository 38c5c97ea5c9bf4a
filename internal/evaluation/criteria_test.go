package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbridge/priorauth/internal/domain/entity"
)

func fact(id, topic string, kind entity.FactKind, directness entity.Directness) entity.EvidenceFact {
	return entity.EvidenceFact{
		ID:         id,
		Statement:  "statement " + id,
		Topics:     []string{topic},
		Kind:       kind,
		Directness: directness,
		Source:     entity.Provenance{Document: "chart.pdf", Page: 1},
	}
}

func TestEvaluateRequiresCriteria(t *testing.T) {
	e := NewCriterionEvaluator()

	_, err := e.Evaluate(nil, nil)
	require.ErrorIs(t, err, ErrNoCriteria)
}

func TestEvaluateVerdicts(t *testing.T) {
	e := NewCriterionEvaluator()

	criteria := []entity.Criterion{
		{ID: "c-met", Text: "supported criterion", Requirement: entity.RequirementMust, Topics: []string{"pain"}},
		{ID: "c-notmet", Text: "contradicted criterion", Requirement: entity.RequirementMust, Topics: []string{"surgery"}},
		{ID: "c-absent", Text: "absence criterion", Requirement: entity.RequirementShould, Topics: []string{"smoking"}},
		{ID: "c-insufficient", Text: "unsupported criterion", Requirement: entity.RequirementShould, Topics: []string{"therapy"}},
	}
	facts := []entity.EvidenceFact{
		fact("f1", "pain", entity.FactSupporting, entity.DirectnessDirect),
		fact("f2", "surgery", entity.FactContradicting, entity.DirectnessStrong),
		fact("f3", "smoking", entity.FactAbsence, entity.DirectnessDirect),
	}

	set, err := e.Evaluate(criteria, facts)
	require.NoError(t, err)
	require.Len(t, set.Evaluations, 4)

	byID := make(map[string]entity.CriterionEvaluation)
	for _, ev := range set.Evaluations {
		byID[ev.Criterion.ID] = ev
	}

	assert.Equal(t, entity.VerdictMet, byID["c-met"].Verdict)
	assert.Equal(t, 95, byID["c-met"].Confidence)
	require.Len(t, byID["c-met"].Evidence, 1)
	assert.Equal(t, "f1", byID["c-met"].Evidence[0].FactID)
	assert.Equal(t, "chart.pdf", byID["c-met"].Evidence[0].Source.Document)

	assert.Equal(t, entity.VerdictNotMet, byID["c-notmet"].Verdict)
	assert.Equal(t, 80, byID["c-notmet"].Confidence)
	assert.Equal(t, "explicit contradicting evidence", byID["c-notmet"].Notes)

	// documented absence counts as NOT_MET, not merely missing
	assert.Equal(t, entity.VerdictNotMet, byID["c-absent"].Verdict)
	assert.Equal(t, "documented absence statement", byID["c-absent"].Notes)

	// nothing found is INSUFFICIENT, never NOT_MET
	assert.Equal(t, entity.VerdictInsufficient, byID["c-insufficient"].Verdict)
	assert.Empty(t, byID["c-insufficient"].Evidence)
}

func TestConflictingEvidenceNoted(t *testing.T) {
	e := NewCriterionEvaluator()

	criteria := []entity.Criterion{
		{ID: "c1", Text: "disputed criterion", Requirement: entity.RequirementMust, Topics: []string{"imaging"}},
	}
	facts := []entity.EvidenceFact{
		fact("f1", "imaging", entity.FactSupporting, entity.DirectnessStrong),
		fact("f2", "imaging", entity.FactContradicting, entity.DirectnessWeak),
	}

	set, err := e.Evaluate(criteria, facts)
	require.NoError(t, err)

	ev := set.Evaluations[0]
	assert.Equal(t, entity.VerdictMet, ev.Verdict)
	assert.Contains(t, ev.Notes, "conflicting evidence")
}

func TestEvidenceOrderedByDirectness(t *testing.T) {
	e := NewCriterionEvaluator()

	criteria := []entity.Criterion{
		{ID: "c1", Text: "criterion", Requirement: entity.RequirementMust, Topics: []string{"pain"}},
	}
	facts := []entity.EvidenceFact{
		fact("weak", "pain", entity.FactSupporting, entity.DirectnessWeak),
		fact("direct", "pain", entity.FactSupporting, entity.DirectnessDirect),
		fact("reasonable", "pain", entity.FactSupporting, entity.DirectnessReasonable),
	}

	set, err := e.Evaluate(criteria, facts)
	require.NoError(t, err)

	refs := set.Evaluations[0].Evidence
	require.Len(t, refs, 3)
	assert.Equal(t, "direct", refs[0].FactID)
	assert.Equal(t, "reasonable", refs[1].FactID)
	assert.Equal(t, "weak", refs[2].FactID)
	assert.Equal(t, 95, set.Evaluations[0].Confidence)
}

func TestGroupVerdictsAndPercentMet(t *testing.T) {
	e := NewCriterionEvaluator()

	// Two ungrouped criteria plus a two-member "any" group: three units.
	criteria := []entity.Criterion{
		{ID: "c1", Text: "first", Requirement: entity.RequirementMust, Topics: []string{"a"}},
		{ID: "c2", Text: "second", Requirement: entity.RequirementMust, Topics: []string{"b"}},
		{ID: "g1", Text: "group member one", Requirement: entity.RequirementShould,
			GroupID: "grp", GroupMode: entity.GroupAny, Topics: []string{"c"}},
		{ID: "g2", Text: "group member two", Requirement: entity.RequirementShould,
			GroupID: "grp", GroupMode: entity.GroupAny, Topics: []string{"d"}},
	}
	facts := []entity.EvidenceFact{
		fact("f1", "a", entity.FactSupporting, entity.DirectnessDirect),
		fact("f2", "c", entity.FactSupporting, entity.DirectnessStrong),
	}

	set, err := e.Evaluate(criteria, facts)
	require.NoError(t, err)

	// c1 MET, c2 INSUFFICIENT, group MET via g1: 2 of 3 units
	assert.Equal(t, entity.VerdictMet, set.GroupVerdicts["grp"])
	assert.InDelta(t, 66.67, set.PercentMet, 0.01)
}

func TestAllGroupRequiresEveryMember(t *testing.T) {
	e := NewCriterionEvaluator()

	criteria := []entity.Criterion{
		{ID: "g1", Text: "member one", Requirement: entity.RequirementMust,
			GroupID: "grp", GroupMode: entity.GroupAll, Topics: []string{"a"}},
		{ID: "g2", Text: "member two", Requirement: entity.RequirementMust,
			GroupID: "grp", GroupMode: entity.GroupAll, Topics: []string{"b"}},
	}
	facts := []entity.EvidenceFact{
		fact("f1", "a", entity.FactSupporting, entity.DirectnessDirect),
	}

	set, err := e.Evaluate(criteria, facts)
	require.NoError(t, err)

	assert.Equal(t, entity.VerdictInsufficient, set.GroupVerdicts["grp"])
	assert.Equal(t, 0.0, set.PercentMet)
}

func TestCriterionTermsFallBackToText(t *testing.T) {
	e := NewCriterionEvaluator()

	criteria := []entity.Criterion{
		{ID: "c1", Text: "documented physical therapy trial", Requirement: entity.RequirementMust},
	}
	facts := []entity.EvidenceFact{
		fact("f1", "therapy", entity.FactSupporting, entity.DirectnessReasonable),
	}

	set, err := e.Evaluate(criteria, facts)
	require.NoError(t, err)
	assert.Equal(t, entity.VerdictMet, set.Evaluations[0].Verdict)
}
