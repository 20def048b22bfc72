package store

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/nithiyan25/reviewtrack/internal/models"
)

type ReviewStore interface {
	Close() error
	ApplyMigrations(dir string) error

	GetScope(scope string) (*models.Scope, error)
	GetTeam(scope, teamID string) (*models.Team, error)
	ListTeams(scope string) ([]models.Team, error)
	GetTeamSnapshot(scope, teamID string) (*models.TeamSnapshot, error)

	CreateSubmission(sub *models.Submission) error
	ListSubmissions(scope, teamID string) ([]models.Submission, error)

	StudentReviews(scope, student string) ([]models.Review, error)
	ListApprovedStudents(scope string) ([]string, error)

	ListSessions(scope string, start, end int64) ([]models.LabSession, error)

	UpsertDeadline(d models.ScopeDeadline) error
	ListDeadlines(scope string) ([]models.ScopeDeadline, error)
	UpsertAssignment(a models.FacultyAssignment) error

	FetchReviewProgress(scope string) ([]ProgressResult, error)
}

// BaseStore provides the dialect-independent queries. Postgres and
// SQLite stores embed it and supply a placeholder Converter plus the
// rollup queries that differ between dialects.
type BaseStore struct {
	DB        *sqlx.DB
	Converter func(string) string
}

func (s *BaseStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// ApplyMigrations applies SQL migrations from a directory, translating
// dialect if needed
func (s *BaseStore) ApplyMigrations(dir string, translateSQL func(string) string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		content, err := os.ReadFile(fmt.Sprintf("%s/%s", dir, file.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file.Name(), err)
		}

		sql := string(content)
		if translateSQL != nil {
			sql = translateSQL(sql)
		}

		if _, err := s.DB.Exec(sql); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file.Name(), err)
		}
	}

	return nil
}

func (s *BaseStore) GetScope(scope string) (*models.Scope, error) {
	var sc models.Scope
	query := s.Converter(`
		SELECT scope, num_phases, require_guide, require_expert, results_published
		FROM scopes
		WHERE scope = ?
	`)

	err := s.DB.Get(&sc, query, scope)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scope: %w", err)
	}
	return &sc, nil
}

func (s *BaseStore) GetTeam(scope, teamID string) (*models.Team, error) {
	var team models.Team
	query := s.Converter(`
		SELECT id, scope, project_id, status, guide, guide_status, expert, expert_status
		FROM teams
		WHERE scope = ? AND id = ?
	`)

	err := s.DB.Get(&team, query, scope, teamID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	members, err := s.teamMembers(teamID)
	if err != nil {
		return nil, err
	}
	team.Members = members

	return &team, nil
}

func (s *BaseStore) ListTeams(scope string) ([]models.Team, error) {
	var teams []models.Team
	query := s.Converter(`
		SELECT id, scope, project_id, status, guide, guide_status, expert, expert_status
		FROM teams
		WHERE scope = ?
		ORDER BY id
	`)

	if err := s.DB.Select(&teams, query, scope); err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

func (s *BaseStore) teamMembers(teamID string) ([]models.TeamMember, error) {
	var members []models.TeamMember
	query := s.Converter(`
		SELECT team_id, student, approved, leader
		FROM team_members
		WHERE team_id = ?
		ORDER BY student
	`)

	if err := s.DB.Select(&members, query, teamID); err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	return members, nil
}

// GetTeamSnapshot assembles the read-only projection the phase engine
// consumes: team, scope, reviews with marks, assignments and deadlines
// (scope defaults plus this team's overrides).
func (s *BaseStore) GetTeamSnapshot(scope, teamID string) (*models.TeamSnapshot, error) {
	team, err := s.GetTeam(scope, teamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, nil
	}

	sc, err := s.GetScope(scope)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, fmt.Errorf("scope %s not configured", scope)
	}

	reviews, err := s.teamReviews(teamID)
	if err != nil {
		return nil, err
	}

	var assignments []models.FacultyAssignment
	query := s.Converter(`
		SELECT team_id, phase, faculty, mode, venue, access_starts_at, access_expires_at
		FROM faculty_assignments
		WHERE team_id = ?
		ORDER BY phase, faculty
	`)
	if err := s.DB.Select(&assignments, query, teamID); err != nil {
		return nil, fmt.Errorf("failed to list faculty assignments: %w", err)
	}

	var deadlines []models.ScopeDeadline
	query = s.Converter(`
		SELECT scope, team_id, phase, deadline
		FROM scope_deadlines
		WHERE scope = ? AND (team_id IS NULL OR team_id = ?)
		ORDER BY phase
	`)
	if err := s.DB.Select(&deadlines, query, scope, teamID); err != nil {
		return nil, fmt.Errorf("failed to list deadlines: %w", err)
	}

	return &models.TeamSnapshot{
		Team:        *team,
		Scope:       *sc,
		Reviews:     reviews,
		Assignments: assignments,
		Deadlines:   deadlines,
	}, nil
}

func (s *BaseStore) teamReviews(teamID string) ([]models.Review, error) {
	var reviews []models.Review
	query := s.Converter(`
		SELECT id, team_id, phase, faculty, status, content, created_at, resubmission_note, resubmitted_at
		FROM reviews
		WHERE team_id = ?
		ORDER BY phase, created_at
	`)
	if err := s.DB.Select(&reviews, query, teamID); err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	for i := range reviews {
		marks, err := s.reviewMarks(reviews[i].ID)
		if err != nil {
			return nil, err
		}
		reviews[i].Marks = marks
	}

	return reviews, nil
}

func (s *BaseStore) reviewMarks(reviewID int64) ([]models.ReviewMark, error) {
	var marks []models.ReviewMark
	query := s.Converter(`
		SELECT review_id, student, marks, absent, rubric
		FROM review_marks
		WHERE review_id = ?
		ORDER BY student
	`)
	if err := s.DB.Select(&marks, query, reviewID); err != nil {
		return nil, fmt.Errorf("failed to list review marks: %w", err)
	}
	return marks, nil
}

func (s *BaseStore) CreateSubmission(sub *models.Submission) error {
	_, err := s.DB.NamedExec(`
		INSERT INTO submissions (team_id, scope, phase, student, note, created_at)
		VALUES (:team_id, :scope, :phase, :student, :note, :created_at)
	`, sub)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (s *BaseStore) ListSubmissions(scope, teamID string) ([]models.Submission, error) {
	var subs []models.Submission
	query := s.Converter(`
		SELECT id, team_id, scope, phase, student, note, created_at
		FROM submissions
		WHERE scope = ? AND team_id = ?
		ORDER BY created_at DESC
	`)
	if err := s.DB.Select(&subs, query, scope, teamID); err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return subs, nil
}

// StudentReviews returns the completed-or-otherwise reviews that carry
// marks for a student, across all teams in the scope. Team membership is
// checked so marks for a dropped member never surface.
func (s *BaseStore) StudentReviews(scope, student string) ([]models.Review, error) {
	var reviews []models.Review
	query := s.Converter(`
		SELECT r.id, r.team_id, r.phase, r.faculty, r.status, r.content, r.created_at, r.resubmission_note, r.resubmitted_at
		FROM reviews r
		JOIN teams t ON t.id = r.team_id
		JOIN team_members tm ON tm.team_id = t.id
		WHERE t.scope = ? AND tm.student = ? AND tm.approved = TRUE
		ORDER BY r.phase, r.created_at
	`)
	if err := s.DB.Select(&reviews, query, scope, student); err != nil {
		return nil, fmt.Errorf("failed to list student reviews: %w", err)
	}

	for i := range reviews {
		marks, err := s.reviewMarks(reviews[i].ID)
		if err != nil {
			return nil, err
		}
		reviews[i].Marks = marks
	}

	return reviews, nil
}

func (s *BaseStore) ListApprovedStudents(scope string) ([]string, error) {
	var students []string
	query := s.Converter(`
		SELECT DISTINCT tm.student
		FROM team_members tm
		JOIN teams t ON t.id = tm.team_id
		WHERE t.scope = ? AND tm.approved = TRUE
		ORDER BY tm.student
	`)
	if err := s.DB.Select(&students, query, scope); err != nil {
		return nil, fmt.Errorf("failed to list approved students: %w", err)
	}
	return students, nil
}

// ListSessions lists sessions starting inside [start, end).
func (s *BaseStore) ListSessions(scope string, start, end int64) ([]models.LabSession, error) {
	var sessions []models.LabSession
	query := s.Converter(`
		SELECT id, scope, venue, starts_at, ends_at, participants
		FROM lab_sessions
		WHERE scope = ? AND starts_at >= ? AND starts_at < ?
		ORDER BY starts_at
	`)
	if err := s.DB.Select(&sessions, query, scope, start, end); err != nil {
		return nil, fmt.Errorf("failed to list lab sessions: %w", err)
	}
	return sessions, nil
}

func (s *BaseStore) UpsertDeadline(d models.ScopeDeadline) error {
	var err error
	if d.TeamID == nil {
		_, err = s.DB.NamedExec(`
			INSERT INTO scope_deadlines (scope, team_id, phase, deadline)
			VALUES (:scope, NULL, :phase, :deadline)
			ON CONFLICT(scope, phase) WHERE team_id IS NULL DO UPDATE SET
			deadline = :deadline
		`, d)
	} else {
		_, err = s.DB.NamedExec(`
			INSERT INTO scope_deadlines (scope, team_id, phase, deadline)
			VALUES (:scope, :team_id, :phase, :deadline)
			ON CONFLICT(scope, team_id, phase) WHERE team_id IS NOT NULL DO UPDATE SET
			deadline = :deadline
		`, d)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert deadline: %w", err)
	}
	return nil
}

func (s *BaseStore) ListDeadlines(scope string) ([]models.ScopeDeadline, error) {
	var deadlines []models.ScopeDeadline
	query := s.Converter(`
		SELECT scope, team_id, phase, deadline
		FROM scope_deadlines
		WHERE scope = ?
		ORDER BY phase, team_id
	`)
	if err := s.DB.Select(&deadlines, query, scope); err != nil {
		return nil, fmt.Errorf("failed to list deadlines: %w", err)
	}
	return deadlines, nil
}

func (s *BaseStore) UpsertAssignment(a models.FacultyAssignment) error {
	_, err := s.DB.NamedExec(`
		INSERT INTO faculty_assignments (team_id, phase, faculty, mode, venue, access_starts_at, access_expires_at)
		VALUES (:team_id, :phase, :faculty, :mode, :venue, :access_starts_at, :access_expires_at)
		ON CONFLICT(team_id, phase, faculty) DO UPDATE SET
		mode = :mode,
		venue = :venue,
		access_starts_at = :access_starts_at,
		access_expires_at = :access_expires_at
	`, a)
	if err != nil {
		return fmt.Errorf("failed to upsert faculty assignment: %w", err)
	}
	return nil
}
