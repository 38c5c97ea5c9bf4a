package sequencer

import (
	"fmt"
	"strings"

	"github.com/medbridge/priorauth/internal/domain/entity"
)

// Progress is the human-readable resume summary for a run
type Progress struct {
	RunID     string        `json:"run_id"`
	CaseID    string        `json:"case_id"`
	Status    string        `json:"status"`
	Completed int           `json:"completed"`
	Remaining int           `json:"remaining"`
	NextTask  string        `json:"next_task,omitempty"`
	Ledger    entity.Ledger `json:"ledger"`
}

// Done reports whether every task has completed
func (p *Progress) Done() bool {
	return p.Remaining == 0
}

// Summary renders a one-look progress line per task
func (p *Progress) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s (case %s): %d completed, %d remaining", p.RunID, p.CaseID, p.Completed, p.Remaining)
	if p.NextTask != "" {
		fmt.Fprintf(&b, ", next %s", p.NextTask)
	}
	b.WriteString("\n")
	for _, t := range p.Ledger.Tasks {
		fmt.Fprintf(&b, "  %-18s %s", t.ID, t.Status)
		if t.StartedAt != nil {
			fmt.Fprintf(&b, " started=%s", t.StartedAt.Format("2006-01-02T15:04:05Z07:00"))
		}
		if t.CompletedAt != nil {
			fmt.Fprintf(&b, " completed=%s", t.CompletedAt.Format("2006-01-02T15:04:05Z07:00"))
		}
		b.WriteString("\n")
	}
	return b.String()
}
