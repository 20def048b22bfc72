// internal/store/sqlite/store_test.go
package sqlite

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nithiyan25/reviewtrack/internal/models"
	"github.com/nithiyan25/reviewtrack/internal/store"
)

// setupTestDB creates an in-memory SQLite database and initializes schema
func setupTestDB(t *testing.T) (*SQLiteStore, func()) {
	// Create tables directly instead of using migrations for tests
	schema := `
	CREATE TABLE scopes (
		scope TEXT NOT NULL PRIMARY KEY,
		num_phases INTEGER NOT NULL,
		require_guide INTEGER NOT NULL DEFAULT 0,
		require_expert INTEGER NOT NULL DEFAULT 0,
		results_published INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE teams (
		id TEXT NOT NULL PRIMARY KEY,
		scope TEXT NOT NULL,
		project_id TEXT,
		status TEXT NOT NULL DEFAULT 'PENDING',
		guide TEXT,
		guide_status TEXT NOT NULL DEFAULT 'PENDING',
		expert TEXT,
		expert_status TEXT NOT NULL DEFAULT 'PENDING'
	);
	CREATE TABLE team_members (
		team_id TEXT NOT NULL,
		student TEXT NOT NULL,
		approved INTEGER NOT NULL DEFAULT 0,
		leader INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (team_id, student)
	);
	CREATE TABLE reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		team_id TEXT NOT NULL,
		phase INTEGER NOT NULL,
		faculty TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		content TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		resubmission_note TEXT NOT NULL DEFAULT '',
		resubmitted_at INTEGER
	);
	CREATE TABLE review_marks (
		review_id INTEGER NOT NULL,
		student TEXT NOT NULL,
		marks REAL NOT NULL DEFAULT 0,
		absent INTEGER NOT NULL DEFAULT 0,
		rubric TEXT,
		PRIMARY KEY (review_id, student)
	);
	CREATE TABLE faculty_assignments (
		team_id TEXT NOT NULL,
		phase INTEGER NOT NULL,
		faculty TEXT NOT NULL,
		mode TEXT NOT NULL DEFAULT 'OFFLINE',
		venue TEXT NOT NULL DEFAULT '',
		access_starts_at INTEGER,
		access_expires_at INTEGER,
		PRIMARY KEY (team_id, phase, faculty)
	);
	CREATE TABLE scope_deadlines (
		scope TEXT NOT NULL,
		team_id TEXT,
		phase INTEGER NOT NULL,
		deadline INTEGER NOT NULL
	);
	CREATE UNIQUE INDEX scope_deadlines_default_idx
		ON scope_deadlines (scope, phase) WHERE team_id IS NULL;
	CREATE UNIQUE INDEX scope_deadlines_override_idx
		ON scope_deadlines (scope, team_id, phase) WHERE team_id IS NOT NULL;
	CREATE TABLE submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		team_id TEXT NOT NULL,
		scope TEXT NOT NULL,
		phase INTEGER NOT NULL,
		student TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE TABLE lab_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scope TEXT NOT NULL,
		venue TEXT NOT NULL DEFAULT '',
		starts_at INTEGER NOT NULL,
		ends_at INTEGER NOT NULL,
		participants TEXT NOT NULL DEFAULT ''
	);`

	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err, "Failed to open in-memory sqlite")

	db.MustExec(schema)

	s := &SQLiteStore{BaseStore: store.BaseStore{
		DB: db,
		Converter: func(query string) string {
			return query
		},
	}}

	return s, func() { s.Close() }
}

func TestShippedMigrationsApply(t *testing.T) {
	s, err := NewSQLiteStore(":memory:", "../../../migrations")
	require.NoError(t, err, "Shipped migrations must translate and apply on sqlite")
	defer s.Close()

	s.DB.MustExec(`
		INSERT INTO scopes (scope, num_phases, results_published)
		VALUES ('PT24', 3, 1)`)
	s.DB.MustExec(`INSERT INTO teams (id, scope) VALUES ('team-01', 'PT24')`)

	t.Run("autoincrement ids survive translation", func(t *testing.T) {
		s.DB.MustExec(`
			INSERT INTO reviews (team_id, phase, faculty, created_at) VALUES
			('team-01', 1, 'prof.rao', 100),
			('team-01', 2, 'prof.iyer', 200)`)

		var ids []int64
		require.NoError(t, s.DB.Select(&ids, `SELECT id FROM reviews ORDER BY id`))
		assert.Equal(t, []int64{1, 2}, ids)
	})

	t.Run("deadline upsert hits the partial indexes", func(t *testing.T) {
		d := models.ScopeDeadline{Scope: "PT24", Phase: 1, Deadline: 1000}
		require.NoError(t, s.UpsertDeadline(d))
		d.Deadline = 2000
		require.NoError(t, s.UpsertDeadline(d))

		deadlines, err := s.ListDeadlines("PT24")
		require.NoError(t, err)
		require.Len(t, deadlines, 1)
		assert.Equal(t, int64(2000), deadlines[0].Deadline)
	})

	t.Run("snapshot reads the migrated schema", func(t *testing.T) {
		snap, err := s.GetTeamSnapshot("PT24", "team-01")
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Len(t, snap.Reviews, 2)
	})
}

type testData struct {
	store *SQLiteStore
	now   time.Time
}

func setupTestData(t *testing.T) (*testData, func()) {
	s, cleanup := setupTestDB(t)
	now := time.Date(2024, 11, 14, 12, 0, 0, 0, time.UTC)

	s.DB.MustExec(`
		INSERT INTO scopes (scope, num_phases, require_guide, require_expert, results_published)
		VALUES ('PT24', 3, 1, 0, 1)`)
	s.DB.MustExec(`
		INSERT INTO teams (id, scope, status, guide, guide_status)
		VALUES ('team-01', 'PT24', 'PENDING', 'guide.menon', 'APPROVED')`)
	s.DB.MustExec(`
		INSERT INTO team_members (team_id, student, approved, leader) VALUES
		('team-01', 'asha.n', 1, 1),
		('team-01', 'vikram.s', 1, 0),
		('team-01', 'dropout.x', 0, 0)`)
	s.DB.MustExec(`
		INSERT INTO reviews (team_id, phase, faculty, status, content, created_at) VALUES
		('team-01', 1, 'prof.rao', 'COMPLETED', 'solid start', ?)`,
		now.Add(-48*time.Hour).Unix())
	s.DB.MustExec(`
		INSERT INTO review_marks (review_id, student, marks, absent, rubric) VALUES
		(1, 'asha.n', 40, 0, '{"Design":{"score":18,"max":20},"Code":{"score":22,"max":30},"_total":50}'),
		(1, 'vikram.s', 35, 0, NULL)`)
	s.DB.MustExec(`
		INSERT INTO faculty_assignments (team_id, phase, faculty, mode, venue, access_expires_at) VALUES
		('team-01', 2, 'prof.iyer', 'ONLINE', '', ?)`,
		now.Add(24*time.Hour).Unix())
	s.DB.MustExec(`
		INSERT INTO scope_deadlines (scope, team_id, phase, deadline) VALUES
		('PT24', NULL, 2, ?)`,
		now.Add(72*time.Hour).Unix())

	return &testData{
		store: s,
		now:   now,
	}, cleanup
}

func TestGetTeamSnapshot(t *testing.T) {
	td, cleanup := setupTestData(t)
	defer cleanup()

	t.Run("assembles the full projection", func(t *testing.T) {
		snap, err := td.store.GetTeamSnapshot("PT24", "team-01")
		require.NoError(t, err)
		require.NotNil(t, snap)

		assert.Equal(t, "team-01", snap.Team.ID)
		assert.Len(t, snap.Team.Members, 3)
		assert.Equal(t, 3, snap.Scope.NumPhases)
		require.Len(t, snap.Reviews, 1)
		assert.Len(t, snap.Reviews[0].Marks, 2)
		require.Len(t, snap.Assignments, 1)
		assert.Equal(t, 2, snap.Assignments[0].Phase)
		require.Len(t, snap.Deadlines, 1)
	})

	t.Run("unknown team yields nil", func(t *testing.T) {
		snap, err := td.store.GetTeamSnapshot("PT24", "no-such-team")
		require.NoError(t, err)
		assert.Nil(t, snap)
	})

	t.Run("includes team deadline overrides", func(t *testing.T) {
		td.store.DB.MustExec(`
			INSERT INTO scope_deadlines (scope, team_id, phase, deadline)
			VALUES ('PT24', 'team-01', 2, ?)`,
			td.now.Add(96*time.Hour).Unix())

		snap, err := td.store.GetTeamSnapshot("PT24", "team-01")
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Len(t, snap.Deadlines, 2)
	})
}

func TestSubmissionOperations(t *testing.T) {
	td, cleanup := setupTestData(t)
	defer cleanup()

	sub := models.Submission{
		TeamID:    "team-01",
		Scope:     "PT24",
		Phase:     2,
		Student:   "asha.n",
		Note:      "fixed the schema diagrams",
		CreatedAt: td.now.Unix(),
	}

	t.Run("create submission", func(t *testing.T) {
		err := td.store.CreateSubmission(&sub)
		require.NoError(t, err)
	})

	t.Run("list submissions", func(t *testing.T) {
		subs, err := td.store.ListSubmissions("PT24", "team-01")
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, sub.Note, subs[0].Note)
		assert.Equal(t, 2, subs[0].Phase)
	})
}

func TestStudentReviews(t *testing.T) {
	td, cleanup := setupTestData(t)
	defer cleanup()

	t.Run("approved member sees reviews with marks", func(t *testing.T) {
		reviews, err := td.store.StudentReviews("PT24", "asha.n")
		require.NoError(t, err)
		require.Len(t, reviews, 1)
		assert.Len(t, reviews[0].Marks, 2)
	})

	t.Run("unapproved member sees nothing", func(t *testing.T) {
		reviews, err := td.store.StudentReviews("PT24", "dropout.x")
		require.NoError(t, err)
		assert.Empty(t, reviews)
	})
}

func TestListApprovedStudents(t *testing.T) {
	td, cleanup := setupTestData(t)
	defer cleanup()

	students, err := td.store.ListApprovedStudents("PT24")
	require.NoError(t, err)
	assert.Equal(t, []string{"asha.n", "vikram.s"}, students)
}

func TestDeadlineUpsert(t *testing.T) {
	td, cleanup := setupTestData(t)
	defer cleanup()

	t.Run("update scope default in place", func(t *testing.T) {
		err := td.store.UpsertDeadline(models.ScopeDeadline{
			Scope:    "PT24",
			Phase:    2,
			Deadline: td.now.Add(120 * time.Hour).Unix(),
		})
		require.NoError(t, err)

		deadlines, err := td.store.ListDeadlines("PT24")
		require.NoError(t, err)
		require.Len(t, deadlines, 1)
		assert.Equal(t, td.now.Add(120*time.Hour).Unix(), deadlines[0].Deadline)
	})

	t.Run("team override is a separate row", func(t *testing.T) {
		teamID := "team-01"
		err := td.store.UpsertDeadline(models.ScopeDeadline{
			Scope:    "PT24",
			TeamID:   &teamID,
			Phase:    2,
			Deadline: td.now.Add(144 * time.Hour).Unix(),
		})
		require.NoError(t, err)

		deadlines, err := td.store.ListDeadlines("PT24")
		require.NoError(t, err)
		assert.Len(t, deadlines, 2)
	})
}

func TestAssignmentUpsert(t *testing.T) {
	td, cleanup := setupTestData(t)
	defer cleanup()

	expires := td.now.Add(48 * time.Hour).Unix()
	err := td.store.UpsertAssignment(models.FacultyAssignment{
		TeamID:          "team-01",
		Phase:           2,
		Faculty:         "prof.iyer",
		Mode:            models.ModeOffline,
		Venue:           "Lab 3",
		AccessExpiresAt: &expires,
	})
	require.NoError(t, err)

	snap, err := td.store.GetTeamSnapshot("PT24", "team-01")
	require.NoError(t, err)
	require.Len(t, snap.Assignments, 1)
	assert.Equal(t, models.ModeOffline, snap.Assignments[0].Mode)
	assert.Equal(t, "Lab 3", snap.Assignments[0].Venue)
	require.NotNil(t, snap.Assignments[0].AccessExpiresAt)
	assert.Equal(t, expires, *snap.Assignments[0].AccessExpiresAt)
}

func TestListSessions(t *testing.T) {
	td, cleanup := setupTestData(t)
	defer cleanup()

	td.store.DB.MustExec(`
		INSERT INTO lab_sessions (scope, venue, starts_at, ends_at, participants) VALUES
		('PT24', 'Lab 1', ?, ?, 'team-01'),
		('PT24', 'Lab 2', ?, ?, 'team-02'),
		('PT24', 'Lab 3', ?, ?, 'team-03')`,
		td.now.Add(2*time.Hour).Unix(), td.now.Add(4*time.Hour).Unix(),
		td.now.Add(240*time.Hour).Unix(), td.now.Add(242*time.Hour).Unix(),
		td.now.Add(24*time.Hour).Unix(), td.now.Add(26*time.Hour).Unix(),
	)

	sessions, err := td.store.ListSessions("PT24", td.now.Unix(), td.now.Add(24*time.Hour).Unix())
	require.NoError(t, err)
	require.Len(t, sessions, 1, "session starting exactly at the end bound belongs to the next window")
	assert.Equal(t, "Lab 1", sessions[0].Venue)

	next, err := td.store.ListSessions("PT24", td.now.Add(24*time.Hour).Unix(), td.now.Add(48*time.Hour).Unix())
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, "Lab 3", next[0].Venue)
}

func TestFetchReviewProgress(t *testing.T) {
	td, cleanup := setupTestData(t)
	defer cleanup()

	td.store.DB.MustExec(`INSERT INTO teams (id, scope) VALUES ('team-02', 'PT24')`)

	progress, err := td.store.FetchReviewProgress("PT24")
	require.NoError(t, err)
	require.Len(t, progress, 2)

	assert.Equal(t, "team-01", progress[0].TeamID)
	assert.Equal(t, int64(1), progress[0].ReviewCount)
	assert.Equal(t, int64(1), progress[0].CompletedCount)
	require.NotNil(t, progress[0].LastReviewAt)

	assert.Equal(t, "team-02", progress[1].TeamID)
	assert.Equal(t, int64(0), progress[1].ReviewCount)
	assert.Nil(t, progress[1].LastReviewAt)
}
