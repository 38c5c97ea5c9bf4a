package evaluation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/medbridge/priorauth/internal/domain/entity"
)

// ErrNoCriteria is returned when a policy supplies an empty criteria list
var ErrNoCriteria = errors.New("no criteria supplied")

// CriterionEvaluator matches policy criteria against the case evidence
// bag and produces one verdict per criterion. It is deterministic and
// performs no I/O.
type CriterionEvaluator struct{}

// NewCriterionEvaluator creates a new criterion evaluator
func NewCriterionEvaluator() *CriterionEvaluator {
	return &CriterionEvaluator{}
}

// Directness score bands: direct/unambiguous evidence scores 90-100,
// strong inference 70-89, reasonable inference 50-69, weak below 50.
const (
	scoreDirect     = 95
	scoreStrong     = 80
	scoreReasonable = 60
	scoreWeak       = 40

	// scoreUnsupported applies when evidence was sought but neither a
	// supporting nor a contradicting fact was found
	scoreUnsupported = 30
)

// Evaluate produces a CriterionEvaluation per criterion plus group
// verdicts and the derived percent-MET scalar. Duplicate criterion
// texts are evaluated independently: policies may legitimately restate
// a criterion with different evidence requirements.
func (e *CriterionEvaluator) Evaluate(criteria []entity.Criterion, facts []entity.EvidenceFact) (*entity.EvaluationSet, error) {
	if len(criteria) == 0 {
		return nil, ErrNoCriteria
	}

	set := &entity.EvaluationSet{
		Evaluations: make([]entity.CriterionEvaluation, 0, len(criteria)),
	}

	for _, criterion := range criteria {
		set.Evaluations = append(set.Evaluations, e.evaluateOne(criterion, facts))
	}

	set.GroupVerdicts = groupVerdicts(set.Evaluations)
	set.PercentMet = percentMet(set.Evaluations, set.GroupVerdicts)

	return set, nil
}

// evaluateOne classifies a single criterion:
// MET requires at least one directly supporting fact with provenance;
// NOT_MET requires an explicit contradiction or a documented absence
// statement, never simply "nothing found"; INSUFFICIENT otherwise.
func (e *CriterionEvaluator) evaluateOne(criterion entity.Criterion, facts []entity.EvidenceFact) entity.CriterionEvaluation {
	terms := criterionTerms(criterion)

	var supporting, negating []entity.EvidenceFact
	for _, fact := range facts {
		if !topicsOverlap(terms, fact.Topics) {
			continue
		}
		switch fact.Kind {
		case entity.FactSupporting:
			supporting = append(supporting, fact)
		case entity.FactContradicting, entity.FactAbsence:
			negating = append(negating, fact)
		}
	}

	eval := entity.CriterionEvaluation{Criterion: criterion}

	switch {
	case len(supporting) > 0:
		sortByDirectness(supporting)
		eval.Verdict = entity.VerdictMet
		eval.Evidence = toRefs(supporting)
		eval.Confidence = directnessScore(supporting[0].Directness)
		if len(negating) > 0 {
			eval.Notes = fmt.Sprintf("conflicting evidence present (%d negating fact(s)); supporting evidence prevails", len(negating))
		}
	case len(negating) > 0:
		sortByDirectness(negating)
		eval.Verdict = entity.VerdictNotMet
		eval.Evidence = toRefs(negating)
		eval.Confidence = directnessScore(negating[0].Directness)
		if negating[0].Kind == entity.FactAbsence {
			eval.Notes = "documented absence statement"
		} else {
			eval.Notes = "explicit contradicting evidence"
		}
	default:
		eval.Verdict = entity.VerdictInsufficient
		eval.Confidence = scoreUnsupported
		eval.Notes = "evidence sought; no supporting or contradicting fact found"
	}

	return eval
}

// groupVerdicts collapses grouped criteria: "all" groups are MET only
// when every member is MET, "any" groups when at least one member is.
func groupVerdicts(evals []entity.CriterionEvaluation) map[string]entity.Verdict {
	groups := make(map[string][]entity.CriterionEvaluation)
	modes := make(map[string]entity.GroupMode)
	for _, ev := range evals {
		if ev.Criterion.GroupID == "" {
			continue
		}
		groups[ev.Criterion.GroupID] = append(groups[ev.Criterion.GroupID], ev)
		modes[ev.Criterion.GroupID] = ev.Criterion.GroupMode
	}

	if len(groups) == 0 {
		return nil
	}

	verdicts := make(map[string]entity.Verdict, len(groups))
	for id, members := range groups {
		met := 0
		notMet := 0
		for _, m := range members {
			switch m.Verdict {
			case entity.VerdictMet:
				met++
			case entity.VerdictNotMet:
				notMet++
			}
		}

		switch modes[id] {
		case entity.GroupAny:
			if met > 0 {
				verdicts[id] = entity.VerdictMet
			} else if notMet == len(members) {
				verdicts[id] = entity.VerdictNotMet
			} else {
				verdicts[id] = entity.VerdictInsufficient
			}
		default: // GroupAll
			if met == len(members) {
				verdicts[id] = entity.VerdictMet
			} else if notMet > 0 {
				verdicts[id] = entity.VerdictNotMet
			} else {
				verdicts[id] = entity.VerdictInsufficient
			}
		}
	}
	return verdicts
}

// percentMet computes the MET percentage over evaluation units: each
// ungrouped criterion is one unit, each group collapses to one unit.
func percentMet(evals []entity.CriterionEvaluation, groups map[string]entity.Verdict) float64 {
	units := 0
	met := 0
	seen := make(map[string]bool)

	for _, ev := range evals {
		if gid := ev.Criterion.GroupID; gid != "" {
			if seen[gid] {
				continue
			}
			seen[gid] = true
			units++
			if groups[gid] == entity.VerdictMet {
				met++
			}
			continue
		}
		units++
		if ev.Verdict == entity.VerdictMet {
			met++
		}
	}

	if units == 0 {
		return 0
	}
	return float64(met) / float64(units) * 100
}

func directnessScore(d entity.Directness) int {
	switch d {
	case entity.DirectnessDirect:
		return scoreDirect
	case entity.DirectnessStrong:
		return scoreStrong
	case entity.DirectnessReasonable:
		return scoreReasonable
	default:
		return scoreWeak
	}
}

func directnessRank(d entity.Directness) int {
	switch d {
	case entity.DirectnessDirect:
		return 3
	case entity.DirectnessStrong:
		return 2
	case entity.DirectnessReasonable:
		return 1
	default:
		return 0
	}
}

func sortByDirectness(facts []entity.EvidenceFact) {
	sort.SliceStable(facts, func(i, j int) bool {
		return directnessRank(facts[i].Directness) > directnessRank(facts[j].Directness)
	})
}

func toRefs(facts []entity.EvidenceFact) []entity.EvidenceRef {
	refs := make([]entity.EvidenceRef, len(facts))
	for i, f := range facts {
		refs[i] = entity.EvidenceRef{
			FactID:    f.ID,
			Statement: f.Statement,
			Source:    f.Source,
		}
	}
	return refs
}

// criterionTerms returns the match vocabulary for a criterion: its
// explicit topics when present, otherwise significant words from its
// text.
func criterionTerms(c entity.Criterion) []string {
	if len(c.Topics) > 0 {
		terms := make([]string, len(c.Topics))
		for i, t := range c.Topics {
			terms[i] = strings.ToLower(t)
		}
		return terms
	}

	var terms []string
	for _, word := range strings.Fields(strings.ToLower(c.Text)) {
		word = strings.Trim(word, ".,;:()")
		if len(word) > 3 {
			terms = append(terms, word)
		}
	}
	return terms
}

func topicsOverlap(terms []string, topics []string) bool {
	for _, topic := range topics {
		topic = strings.ToLower(topic)
		for _, term := range terms {
			if topic == term {
				return true
			}
		}
	}
	return false
}
