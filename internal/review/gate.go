package review

import (
	"github.com/nithiyan25/reviewtrack/internal/models"
)

// Gating reasons surfaced to the caller. These are contract strings the
// portal displays verbatim.
const (
	ReasonAllPhasesComplete = "all phases complete"
	ReasonPhaseMissed       = "phase missed, awaiting reassignment"
	ReasonAwaitingFeedback  = "awaiting feedback / already submitted"
	ReasonGuidePending      = "guide approval pending"
	ReasonExpertPending     = "expert approval pending"
)

// Decision says whether the team may submit work right now. When
// allowed, Phase tags the submission with the current phase.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Phase   int    `json:"phase,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// EvaluateSubmission runs the submission decision table, first match
// wins. The completed-phase check outranks everything, including
// missing guide or expert approval. `now` is already baked into the
// phase state, so the gate itself needs no clock.
func EvaluateSubmission(snap *models.TeamSnapshot, state PhaseState) Decision {
	if state.CompletedPhases >= snap.Scope.NumPhases {
		return Decision{Reason: ReasonAllPhasesComplete}
	}

	missed := make(map[int]bool)
	completed := make(map[int]bool)
	var anyPending, currentCompleted bool
	for i := range snap.Reviews {
		r := &snap.Reviews[i]
		switch r.Status {
		case models.ReviewNotCompleted:
			missed[r.Phase] = true
		case models.ReviewCompleted:
			completed[r.Phase] = true
			if r.Phase == state.CurrentPhase {
				currentCompleted = true
			}
		case models.ReviewPending:
			anyPending = true
		}
	}

	// A missed phase locks the team until a reassignment produces a
	// completed review for it, even though the engine already counts
	// the phase as passed.
	for phase := range missed {
		if !completed[phase] {
			return Decision{Reason: ReasonPhaseMissed}
		}
	}
	if currentCompleted || anyPending || snap.Team.Status == models.TeamReadyForReview {
		return Decision{Reason: ReasonAwaitingFeedback}
	}
	if snap.Scope.RequireGuide && !approved(snap.Team.Guide, snap.Team.GuideStatus) {
		return Decision{Reason: ReasonGuidePending}
	}
	if snap.Scope.RequireExpert && !approved(snap.Team.Expert, snap.Team.ExpertStatus) {
		return Decision{Reason: ReasonExpertPending}
	}

	return Decision{Allowed: true, Phase: state.CurrentPhase}
}

func approved(ref *string, status string) bool {
	return ref != nil && status == models.ApprovalApproved
}
