package models

import (
	"github.com/go-playground/validator/v10"
)

// Submission is the intent a team emits when the gate allows submitting
// work for the current phase. The note carries student context when
// resubmitting after CHANGES_REQUIRED.
type Submission struct {
	ID        int64  `db:"id" json:"id"`
	TeamID    string `db:"team_id" json:"team_id" validate:"required"`
	Scope     string `db:"scope" json:"scope" validate:"required,max=16"`
	Phase     int    `db:"phase" json:"phase" validate:"required,min=1"`
	Student   string `db:"student" json:"student" validate:"required"`
	Note      string `db:"note" json:"note"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
}

func (s *Submission) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}
