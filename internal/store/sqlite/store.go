// internal/store/sqlite/store.go
package sqlite

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nithiyan25/reviewtrack/internal/store"
)

type SQLiteStore struct {
	store.BaseStore
}

func NewSQLiteStore(dsn, migrationsDir string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{BaseStore: store.BaseStore{
		DB: db,
		Converter: func(query string) string {
			return query
		},
	}}

	if err := s.ApplyMigrations(migrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) ApplyMigrations(dir string) error {
	return s.BaseStore.ApplyMigrations(dir, translateToSQLite)
}

// translateToSQLite converts Postgres SQL to SQLite dialect. The
// replacements are ordered: longer tokens go first so BIGSERIAL never
// gets mangled by the SERIAL or BIGINT rules.
func translateToSQLite(sql string) string {
	replacements := [][2]string{
		{"BIGSERIAL PRIMARY KEY", "INTEGER PRIMARY KEY AUTOINCREMENT"},
		{"SERIAL PRIMARY KEY", "INTEGER PRIMARY KEY AUTOINCREMENT"},
		{"BIGSERIAL", "INTEGER"},
		{"BIGINT", "INTEGER"},
		{"SERIAL", "INTEGER"},
		{"BOOLEAN", "INTEGER"},
		{"TRUE", "1"},
		{"FALSE", "0"},
		{"now()", "CURRENT_TIMESTAMP"},
		{"VARCHAR(16)", "TEXT"},
		{"VARCHAR(8)", "TEXT"},
		{"::text", ""},
	}
	result := sql
	for _, r := range replacements {
		result = strings.ReplaceAll(result, r[0], r[1])
	}
	return result
}

func (s *SQLiteStore) FetchReviewProgress(scope string) ([]store.ProgressResult, error) {
	query := `
		WITH team_reviews AS (
			SELECT
				r.team_id,
				t.scope,
				COUNT(*) as review_count,
				SUM(CASE WHEN r.status = 'COMPLETED' THEN 1 ELSE 0 END) as completed_count,
				MAX(r.created_at) as last_review_at
			FROM reviews r
			JOIN teams t ON t.id = r.team_id
			WHERE t.scope = ?
			GROUP BY r.team_id, t.scope
		)
		SELECT
			t.id as team_id,
			t.scope,
			COALESCE(tr.review_count, 0) as review_count,
			COALESCE(tr.completed_count, 0) as completed_count,
			tr.last_review_at
		FROM teams t
		LEFT JOIN team_reviews tr ON tr.team_id = t.id
		WHERE t.scope = ?
		ORDER BY t.id
	`

	var results []store.ProgressResult
	err := s.DB.Select(&results, query, scope, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch review progress: %w", err)
	}

	return results, nil
}
