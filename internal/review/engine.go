package review

import (
	"sort"

	"github.com/nithiyan25/reviewtrack/internal/models"
)

type HistoryKind string

const (
	HistoryReview           HistoryKind = "REVIEW"
	HistoryMissedAssignment HistoryKind = "MISSED_ASSIGNMENT"
	HistoryMissedDeadline   HistoryKind = "MISSED_DEADLINE"
)

// HistoryEntry is one row of the merged chronological review history:
// an actual review, an assignment window that lapsed unreviewed, or a
// deadline that passed with nothing to show for the phase.
type HistoryEntry struct {
	Kind      HistoryKind    `json:"kind"`
	Phase     int            `json:"phase"`
	Timestamp int64          `json:"timestamp"`
	Faculty   string         `json:"faculty,omitempty"`
	Review    *models.Review `json:"review,omitempty"`
}

// PhaseState is the engine output for one team at one instant.
type PhaseState struct {
	CurrentPhase    int            `json:"current_phase"`
	Deadline        *int64         `json:"deadline,omitempty"`
	Expired         bool           `json:"expired"`
	CompletedPhases int            `json:"completed_phases"`
	History         []HistoryEntry `json:"history"`
}

// ComputePhaseState derives the current review phase, its deadline and
// the merged history from a team snapshot. It is a total function:
// absent or zero timestamps mean "no constraint", never an error, and
// it holds no state between calls.
func ComputePhaseState(snap *models.TeamSnapshot, now int64) PhaseState {
	passed := make(map[int]bool)
	resolved := make(map[int]bool)
	completed := make(map[int]bool)

	for i := range snap.Reviews {
		r := &snap.Reviews[i]
		if r.Status != models.ReviewPending {
			passed[r.Phase] = true
		}
		if r.Resolved() {
			resolved[r.Phase] = true
		}
		if r.Status == models.ReviewCompleted {
			completed[r.Phase] = true
		}
	}
	for i := range snap.Assignments {
		if snap.Assignments[i].Expired(now) {
			passed[snap.Assignments[i].Phase] = true
		}
	}
	for _, d := range snap.Deadlines {
		// The effective deadline decides passage: a future team
		// override keeps the phase open even when the scope default
		// has already lapsed.
		eff := deadlineFor(snap.Deadlines, d.Phase)
		if eff != nil && *eff < now {
			passed[d.Phase] = true
		}
	}

	highestPassed := 0
	for p := range passed {
		if p > highestPassed {
			highestPassed = p
		}
	}

	// An assignment is active while its window is still open and its
	// phase is not conclusively reviewed. When several windows overlap
	// the one closing soonest wins, so the pick is deterministic.
	var active *models.FacultyAssignment
	for i := range snap.Assignments {
		a := &snap.Assignments[i]
		if a.AccessExpiresAt == nil || *a.AccessExpiresAt <= now {
			continue
		}
		if resolved[a.Phase] {
			continue
		}
		if active == nil || *a.AccessExpiresAt < *active.AccessExpiresAt {
			active = a
		}
	}

	current := highestPassed + 1
	if active != nil {
		current = active.Phase
	}

	deadline := deadlineFor(snap.Deadlines, current)

	return PhaseState{
		CurrentPhase:    current,
		Deadline:        deadline,
		Expired:         deadline != nil && *deadline < now,
		CompletedPhases: len(completed),
		History:         mergeHistory(snap, now),
	}
}

// deadlineFor resolves the effective deadline for a phase. A team-level
// override beats the scope-wide default when both exist.
func deadlineFor(deadlines []models.ScopeDeadline, phase int) *int64 {
	var scoped *int64
	for i := range deadlines {
		d := &deadlines[i]
		if d.Phase != phase || d.Deadline <= 0 {
			continue
		}
		if d.TeamID != nil {
			return &d.Deadline
		}
		if scoped == nil {
			scoped = &d.Deadline
		}
	}
	return scoped
}

// mergeHistory unions resolved reviews, lapsed assignments and blown
// deadlines into one descending timeline. A single missed phase shows
// up exactly once across the two missed categories.
func mergeHistory(snap *models.TeamSnapshot, now int64) []HistoryEntry {
	var entries []HistoryEntry

	reviewedPhases := make(map[int]bool)
	for i := range snap.Reviews {
		r := &snap.Reviews[i]
		if r.Status == models.ReviewPending {
			continue
		}
		reviewedPhases[r.Phase] = true
		entries = append(entries, HistoryEntry{
			Kind:      HistoryReview,
			Phase:     r.Phase,
			Timestamp: r.CreatedAt,
			Faculty:   r.Faculty,
			Review:    r,
		})
	}

	missedPhases := make(map[int]bool)
	for i := range snap.Assignments {
		a := &snap.Assignments[i]
		if !a.Expired(now) {
			continue
		}
		if hasResolvedReview(snap.Reviews, a.Phase, a.Faculty) {
			continue
		}
		missedPhases[a.Phase] = true
		entries = append(entries, HistoryEntry{
			Kind:      HistoryMissedAssignment,
			Phase:     a.Phase,
			Timestamp: *a.AccessExpiresAt,
			Faculty:   a.Faculty,
		})
	}

	deadlinePhases := make(map[int]bool)
	for _, d := range snap.Deadlines {
		if reviewedPhases[d.Phase] || missedPhases[d.Phase] || deadlinePhases[d.Phase] {
			continue
		}
		eff := deadlineFor(snap.Deadlines, d.Phase)
		if eff == nil || *eff >= now {
			continue
		}
		deadlinePhases[d.Phase] = true
		entries = append(entries, HistoryEntry{
			Kind:      HistoryMissedDeadline,
			Phase:     d.Phase,
			Timestamp: *eff,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})

	return entries
}

func hasResolvedReview(reviews []models.Review, phase int, faculty string) bool {
	for i := range reviews {
		r := &reviews[i]
		if r.Phase == phase && r.Faculty == faculty && r.Resolved() {
			return true
		}
	}
	return false
}
