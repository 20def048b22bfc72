package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nithiyan25/reviewtrack/internal/models"
)

func ts(t time.Time) int64 { return t.Unix() }

func i64(v int64) *int64 { return &v }

var baseTime = time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC)

func snapshot(numPhases int) *models.TeamSnapshot {
	return &models.TeamSnapshot{
		Team: models.Team{
			ID:     "team-01",
			Scope:  "PT24",
			Status: models.TeamPending,
		},
		Scope: models.Scope{
			Scope:     "PT24",
			NumPhases: numPhases,
		},
	}
}

func TestComputePhaseState_CurrentPhase(t *testing.T) {
	now := ts(baseTime)

	testCases := []struct {
		name          string
		mutate        func(*models.TeamSnapshot)
		expectedPhase int
	}{
		{
			name:          "fresh team starts at phase 1",
			mutate:        func(s *models.TeamSnapshot) {},
			expectedPhase: 1,
		},
		{
			name: "completed review advances to next phase",
			mutate: func(s *models.TeamSnapshot) {
				s.Reviews = []models.Review{
					{ID: 1, TeamID: "team-01", Phase: 1, Faculty: "prof.rao", Status: models.ReviewCompleted, CreatedAt: now - 3600},
				}
			},
			expectedPhase: 2,
		},
		{
			name: "pending review does not advance the phase",
			mutate: func(s *models.TeamSnapshot) {
				s.Reviews = []models.Review{
					{ID: 1, TeamID: "team-01", Phase: 1, Faculty: "prof.rao", Status: models.ReviewPending, CreatedAt: now - 3600},
				}
			},
			expectedPhase: 1,
		},
		{
			name: "expired assignment passes its phase",
			mutate: func(s *models.TeamSnapshot) {
				s.Assignments = []models.FacultyAssignment{
					{TeamID: "team-01", Phase: 2, Faculty: "prof.rao", Mode: models.ModeOffline, AccessExpiresAt: i64(now - 600)},
				}
			},
			expectedPhase: 3,
		},
		{
			name: "past deadline passes its phase",
			mutate: func(s *models.TeamSnapshot) {
				s.Deadlines = []models.ScopeDeadline{
					{Scope: "PT24", Phase: 1, Deadline: now - 600},
				}
			},
			expectedPhase: 2,
		},
		{
			name: "active assignment pins the current phase",
			mutate: func(s *models.TeamSnapshot) {
				s.Reviews = []models.Review{
					{ID: 1, TeamID: "team-01", Phase: 1, Faculty: "prof.rao", Status: models.ReviewCompleted, CreatedAt: now - 7200},
				}
				s.Assignments = []models.FacultyAssignment{
					{TeamID: "team-01", Phase: 2, Faculty: "prof.iyer", Mode: models.ModeOnline, AccessExpiresAt: i64(now + 3600)},
				}
			},
			expectedPhase: 2,
		},
		{
			name: "assignment for a resolved phase is ignored",
			mutate: func(s *models.TeamSnapshot) {
				s.Reviews = []models.Review{
					{ID: 1, TeamID: "team-01", Phase: 1, Faculty: "prof.rao", Status: models.ReviewCompleted, CreatedAt: now - 7200},
				}
				s.Assignments = []models.FacultyAssignment{
					{TeamID: "team-01", Phase: 1, Faculty: "prof.rao", Mode: models.ModeOnline, AccessExpiresAt: i64(now + 3600)},
				}
			},
			expectedPhase: 2,
		},
		{
			name: "changes-required keeps the phase open for its assignment",
			mutate: func(s *models.TeamSnapshot) {
				s.Reviews = []models.Review{
					{ID: 1, TeamID: "team-01", Phase: 1, Faculty: "prof.rao", Status: models.ReviewChangesRequired, CreatedAt: now - 7200},
				}
				s.Assignments = []models.FacultyAssignment{
					{TeamID: "team-01", Phase: 1, Faculty: "prof.rao", Mode: models.ModeOnline, AccessExpiresAt: i64(now + 3600)},
				}
			},
			expectedPhase: 1,
		},
		{
			name: "assignment without expiry imposes no constraint",
			mutate: func(s *models.TeamSnapshot) {
				s.Assignments = []models.FacultyAssignment{
					{TeamID: "team-01", Phase: 2, Faculty: "prof.rao", Mode: models.ModeOffline},
				}
			},
			expectedPhase: 1,
		},
		{
			name: "overlapping windows pick the one closing soonest",
			mutate: func(s *models.TeamSnapshot) {
				s.Assignments = []models.FacultyAssignment{
					{TeamID: "team-01", Phase: 3, Faculty: "prof.iyer", Mode: models.ModeOnline, AccessExpiresAt: i64(now + 7200)},
					{TeamID: "team-01", Phase: 2, Faculty: "prof.rao", Mode: models.ModeOnline, AccessExpiresAt: i64(now + 3600)},
				}
			},
			expectedPhase: 2,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			snap := snapshot(3)
			tc.mutate(snap)
			state := ComputePhaseState(snap, now)
			assert.Equal(t, tc.expectedPhase, state.CurrentPhase)
		})
	}
}

func TestComputePhaseState_Deadline(t *testing.T) {
	now := ts(baseTime)
	teamID := "team-01"

	t.Run("team override beats scope default", func(t *testing.T) {
		snap := snapshot(3)
		snap.Deadlines = []models.ScopeDeadline{
			{Scope: "PT24", Phase: 1, Deadline: now + 3600},
			{Scope: "PT24", TeamID: &teamID, Phase: 1, Deadline: now + 7200},
		}

		state := ComputePhaseState(snap, now)
		require.NotNil(t, state.Deadline)
		assert.Equal(t, now+7200, *state.Deadline)
		assert.False(t, state.Expired)
	})

	t.Run("no deadline configured", func(t *testing.T) {
		snap := snapshot(3)
		state := ComputePhaseState(snap, now)
		assert.Nil(t, state.Deadline)
		assert.False(t, state.Expired)
	})

	t.Run("future override keeps a phase open past the scope default", func(t *testing.T) {
		snap := snapshot(3)
		snap.Deadlines = []models.ScopeDeadline{
			{Scope: "PT24", Phase: 1, Deadline: now - 3600},
			{Scope: "PT24", TeamID: &teamID, Phase: 1, Deadline: now + 86400},
		}

		state := ComputePhaseState(snap, now)
		assert.Equal(t, 1, state.CurrentPhase)
		require.NotNil(t, state.Deadline)
		assert.Equal(t, now+86400, *state.Deadline)
		assert.False(t, state.Expired)
		assert.Empty(t, state.History)
	})

	t.Run("past deadline marks the phase expired", func(t *testing.T) {
		snap := snapshot(3)
		snap.Assignments = []models.FacultyAssignment{
			{TeamID: teamID, Phase: 1, Faculty: "prof.rao", Mode: models.ModeOnline, AccessExpiresAt: i64(now + 3600)},
		}
		snap.Deadlines = []models.ScopeDeadline{
			{Scope: "PT24", Phase: 1, Deadline: now - 600},
		}

		state := ComputePhaseState(snap, now)
		assert.Equal(t, 1, state.CurrentPhase)
		require.NotNil(t, state.Deadline)
		assert.True(t, state.Expired)
	})
}

func TestComputePhaseState_History(t *testing.T) {
	now := ts(baseTime)

	t.Run("missed assignment shows up once", func(t *testing.T) {
		snap := snapshot(3)
		snap.Assignments = []models.FacultyAssignment{
			{TeamID: "team-01", Phase: 2, Faculty: "prof.rao", Mode: models.ModeOffline, AccessExpiresAt: i64(now - 600)},
		}

		state := ComputePhaseState(snap, now)
		require.Len(t, state.History, 1)
		assert.Equal(t, HistoryMissedAssignment, state.History[0].Kind)
		assert.Equal(t, 2, state.History[0].Phase)
		assert.Equal(t, 3, state.CurrentPhase)
	})

	t.Run("resolved review suppresses the missed assignment", func(t *testing.T) {
		snap := snapshot(3)
		snap.Reviews = []models.Review{
			{ID: 1, TeamID: "team-01", Phase: 2, Faculty: "prof.rao", Status: models.ReviewCompleted, CreatedAt: now - 300},
		}
		snap.Assignments = []models.FacultyAssignment{
			{TeamID: "team-01", Phase: 2, Faculty: "prof.rao", Mode: models.ModeOffline, AccessExpiresAt: i64(now - 600)},
		}

		state := ComputePhaseState(snap, now)
		require.Len(t, state.History, 1)
		assert.Equal(t, HistoryReview, state.History[0].Kind)
	})

	t.Run("no duplicate phase across missed categories", func(t *testing.T) {
		snap := snapshot(3)
		snap.Assignments = []models.FacultyAssignment{
			{TeamID: "team-01", Phase: 2, Faculty: "prof.rao", Mode: models.ModeOffline, AccessExpiresAt: i64(now - 600)},
		}
		snap.Deadlines = []models.ScopeDeadline{
			{Scope: "PT24", Phase: 2, Deadline: now - 1200},
		}

		state := ComputePhaseState(snap, now)
		require.Len(t, state.History, 1)
		assert.Equal(t, HistoryMissedAssignment, state.History[0].Kind)
		assert.Equal(t, 2, state.History[0].Phase)
	})

	t.Run("blown deadline with nothing else becomes missed deadline", func(t *testing.T) {
		snap := snapshot(3)
		snap.Deadlines = []models.ScopeDeadline{
			{Scope: "PT24", Phase: 1, Deadline: now - 1200},
		}

		state := ComputePhaseState(snap, now)
		require.Len(t, state.History, 1)
		assert.Equal(t, HistoryMissedDeadline, state.History[0].Kind)
		assert.Equal(t, 1, state.History[0].Phase)
	})

	t.Run("missed deadline carries the effective override timestamp", func(t *testing.T) {
		teamID := "team-01"
		snap := snapshot(3)
		snap.Deadlines = []models.ScopeDeadline{
			{Scope: "PT24", Phase: 1, Deadline: now - 7200},
			{Scope: "PT24", TeamID: &teamID, Phase: 1, Deadline: now - 1800},
		}

		state := ComputePhaseState(snap, now)
		require.Len(t, state.History, 1)
		assert.Equal(t, HistoryMissedDeadline, state.History[0].Kind)
		assert.Equal(t, 1, state.History[0].Phase)
		assert.Equal(t, now-1800, state.History[0].Timestamp)
	})

	t.Run("history sorts newest first", func(t *testing.T) {
		snap := snapshot(3)
		snap.Reviews = []models.Review{
			{ID: 1, TeamID: "team-01", Phase: 1, Faculty: "prof.rao", Status: models.ReviewCompleted, CreatedAt: now - 7200},
		}
		snap.Assignments = []models.FacultyAssignment{
			{TeamID: "team-01", Phase: 2, Faculty: "prof.iyer", Mode: models.ModeOffline, AccessExpiresAt: i64(now - 600)},
		}
		snap.Deadlines = []models.ScopeDeadline{
			{Scope: "PT24", Phase: 3, Deadline: now - 3600},
		}

		state := ComputePhaseState(snap, now)
		require.Len(t, state.History, 3)
		assert.Equal(t, HistoryMissedAssignment, state.History[0].Kind)
		assert.Equal(t, HistoryMissedDeadline, state.History[1].Kind)
		assert.Equal(t, HistoryReview, state.History[2].Kind)
	})
}

// A phase that passed never becomes current again as the clock advances
// with no other input change.
func TestComputePhaseState_Monotonic(t *testing.T) {
	start := ts(baseTime)

	snap := snapshot(4)
	snap.Reviews = []models.Review{
		{ID: 1, TeamID: "team-01", Phase: 1, Faculty: "prof.rao", Status: models.ReviewCompleted, CreatedAt: start - 86400},
	}
	snap.Assignments = []models.FacultyAssignment{
		{TeamID: "team-01", Phase: 2, Faculty: "prof.iyer", Mode: models.ModeOnline, AccessExpiresAt: i64(start + 3600)},
		{TeamID: "team-01", Phase: 3, Faculty: "prof.rao", Mode: models.ModeOnline, AccessExpiresAt: i64(start + 7200)},
	}
	snap.Deadlines = []models.ScopeDeadline{
		{Scope: "PT24", Phase: 4, Deadline: start + 10800},
	}

	prev := 0
	for now := start; now <= start+14400; now += 600 {
		state := ComputePhaseState(snap, now)
		assert.GreaterOrEqual(t, state.CurrentPhase, prev, "phase regressed at offset %d", now-start)
		prev = state.CurrentPhase
	}
}
