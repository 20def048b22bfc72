package models

import (
	"github.com/go-playground/validator/v10"
)

const (
	ModeOnline  = "ONLINE"
	ModeOffline = "OFFLINE"
)

// FacultyAssignment grants one faculty member a review access window for
// one phase of a team. Nil window bounds mean no constraint.
type FacultyAssignment struct {
	TeamID          string  `db:"team_id" json:"team_id" validate:"required"`
	Phase           int     `db:"phase" json:"phase" validate:"required,min=1"`
	Faculty         string  `db:"faculty" json:"faculty" validate:"required"`
	Mode            string  `db:"mode" json:"mode" validate:"required,oneof=ONLINE OFFLINE"`
	Venue           string  `db:"venue" json:"venue"`
	AccessStartsAt  *int64  `db:"access_starts_at" json:"access_starts_at,omitempty"`
	AccessExpiresAt *int64  `db:"access_expires_at" json:"access_expires_at,omitempty"`
}

// Expired reports whether the access window closed before now.
// An assignment without an expiry never expires.
func (a *FacultyAssignment) Expired(now int64) bool {
	return a.AccessExpiresAt != nil && *a.AccessExpiresAt < now
}

func (a *FacultyAssignment) Validate() error {
	validate := validator.New()
	return validate.Struct(a)
}
