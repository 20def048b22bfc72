package postgres

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/nithiyan25/reviewtrack/internal/store"
)

type PostgresStore struct {
	store.BaseStore
}

func NewPostgresStore(dsn, migrationsDir string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &PostgresStore{BaseStore: store.BaseStore{
		DB: db,
		Converter: func(query string) string {
			out := query
			for i := 1; strings.Contains(out, "?"); i++ {
				out = strings.Replace(out, "?", fmt.Sprintf("$%d", i), 1)
			}
			return out
		},
	}}

	if err := s.ApplyMigrations(migrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return s, nil
}

func (s *PostgresStore) ApplyMigrations(dir string) error {
	return s.BaseStore.ApplyMigrations(dir, nil)
}

func (s *PostgresStore) FetchReviewProgress(scope string) ([]store.ProgressResult, error) {
	query := `
        WITH team_reviews AS (
            SELECT
                r.team_id,
                t.scope,
                COUNT(*) as review_count,
                COUNT(*) FILTER (WHERE r.status = 'COMPLETED') as completed_count,
                MAX(r.created_at) as last_review_at
            FROM reviews r
            JOIN teams t ON t.id = r.team_id
            WHERE t.scope = $1
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
        WHERE t.scope = $1
        ORDER BY t.id
    `

	var results []store.ProgressResult
	err := s.DB.Select(&results, query, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch review progress: %w", err)
	}

	return results, nil
}
