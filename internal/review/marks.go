package review

import (
	"math"

	"github.com/nithiyan25/reviewtrack/internal/models"
)

// defaultPhaseMax applies when a completed review carries flat marks
// with no rubric total.
const defaultPhaseMax = 100

type PhaseScore struct {
	Phase    int     `json:"phase"`
	Scored   float64 `json:"scored"`
	Possible float64 `json:"possible"`
}

// MarkSummary is a student's aggregate. Pending means results are not
// published yet; a nil CumulativePct with Pending=false means no
// completed review carries marks for the student yet.
type MarkSummary struct {
	Pending       bool         `json:"pending"`
	PerPhase      []PhaseScore `json:"per_phase,omitempty"`
	CumulativePct *float64     `json:"cumulative_pct,omitempty"`
}

// AggregateMarks folds a student's completed reviews into per-phase and
// cumulative percentages. Publication gating is part of the contract:
// until results are published the summary is the pending sentinel no
// matter how complete the marks are.
func AggregateMarks(reviews []models.Review, student string, resultsPublished bool) MarkSummary {
	if !resultsPublished {
		return MarkSummary{Pending: true}
	}

	var scored, possible float64
	var perPhase []PhaseScore
	for i := range reviews {
		r := &reviews[i]
		if r.Status != models.ReviewCompleted {
			continue
		}
		for j := range r.Marks {
			m := &r.Marks[j]
			if m.Student != student {
				continue
			}
			max := float64(defaultPhaseMax)
			if rb := m.Rubric(); rb != nil && rb.Total > 0 {
				max = rb.Total
			}
			scored += m.Marks
			possible += max
			perPhase = append(perPhase, PhaseScore{
				Phase:    r.Phase,
				Scored:   m.Marks,
				Possible: max,
			})
		}
	}

	if possible == 0 {
		return MarkSummary{}
	}

	pct := math.Round(scored/possible*1000) / 10
	return MarkSummary{PerPhase: perPhase, CumulativePct: &pct}
}
