package store

type DatabaseType string

const (
	DBTypePostgres DatabaseType = "postgres"
	DBTypeSQLite   DatabaseType = "sqlite"
)

type DBConfig struct {
	DSN  string
	Type DatabaseType
}

// ProgressResult is one row of the per-team review rollup the dialect
// stores compute in SQL.
type ProgressResult struct {
	TeamID         string `db:"team_id"`
	Scope          string `db:"scope"`
	ReviewCount    int64  `db:"review_count"`
	CompletedCount int64  `db:"completed_count"`
	LastReviewAt   *int64 `db:"last_review_at"`
}
