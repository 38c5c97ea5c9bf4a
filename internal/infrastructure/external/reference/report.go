package reference

import (
	"context"
	"fmt"
	"strings"

	"github.com/medbridge/priorauth/internal/application/port"
	"github.com/medbridge/priorauth/internal/domain/entity"
)

// TextReportFormatter renders the determination report as plain text.
// It consumes only checkpoint data passed in by the caller.
type TextReportFormatter struct{}

// NewTextReportFormatter creates the plain-text report formatter
func NewTextReportFormatter() *TextReportFormatter {
	return &TextReportFormatter{}
}

// Format renders the report: outcome, confidence, gap list, then the
// per-criterion verdicts with their supporting evidence.
func (f *TextReportFormatter) Format(ctx context.Context, run *entity.Run, decision *entity.Decision, evals *entity.EvaluationSet) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "PRIOR AUTHORIZATION DETERMINATION\n")
	fmt.Fprintf(&b, "Run: %s\nCase: %s\n\n", run.ID, run.CaseID)
	fmt.Fprintf(&b, "Outcome: %s\n", decision.Outcome)
	fmt.Fprintf(&b, "Confidence: %.1f (%s)\n", decision.Confidence, decision.Tier)
	if decision.Flagged {
		fmt.Fprintf(&b, "Flagged for additional review\n")
	}
	fmt.Fprintf(&b, "Rationale: %s\n", decision.Rationale)

	if len(decision.Gaps) > 0 {
		fmt.Fprintf(&b, "\nGaps:\n")
		for _, g := range decision.Gaps {
			fmt.Fprintf(&b, "  - [%s] %s\n", g.Gate, g.Description)
		}
	}

	if evals != nil && len(evals.Evaluations) > 0 {
		fmt.Fprintf(&b, "\nCriteria (%.0f%% met):\n", evals.PercentMet)
		for _, ev := range evals.Evaluations {
			fmt.Fprintf(&b, "  %s [%s] %s: %s\n",
				ev.Criterion.ID, ev.Criterion.Requirement, ev.Verdict, ev.Criterion.Text)
			for _, ref := range ev.Evidence {
				fmt.Fprintf(&b, "      evidence: %s (%s)\n", ref.Statement, ref.Source.Document)
			}
			if ev.Notes != "" {
				fmt.Fprintf(&b, "      note: %s\n", ev.Notes)
			}
		}
	}

	return b.String(), nil
}

// Verify interface compliance
var _ port.ReportFormatter = (*TextReportFormatter)(nil)
