package models

import (
	"github.com/go-playground/validator/v10"
)

// Scope is an academic batch: a cohort with its own number of review
// phases, deadlines and result publication switch.
type Scope struct {
	Scope            string `db:"scope" json:"scope" validate:"required,max=16"`
	NumPhases        int    `db:"num_phases" json:"num_phases" validate:"required,min=1"`
	RequireGuide     bool   `db:"require_guide" json:"require_guide"`
	RequireExpert    bool   `db:"require_expert" json:"require_expert"`
	ResultsPublished bool   `db:"results_published" json:"results_published"`
}

// ScopeDeadline is an absolute deadline for one phase. TeamID is nil for
// the scope-wide default and set for a team-level override.
type ScopeDeadline struct {
	Scope    string  `db:"scope" json:"scope" validate:"required,max=16"`
	TeamID   *string `db:"team_id" json:"team_id,omitempty"`
	Phase    int     `db:"phase" json:"phase" validate:"required,min=1"`
	Deadline int64   `db:"deadline" json:"deadline"`
}

func (s *Scope) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}

func (d *ScopeDeadline) Validate() error {
	validate := validator.New()
	return validate.Struct(d)
}
