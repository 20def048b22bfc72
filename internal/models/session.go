package models

import (
	"github.com/go-playground/validator/v10"
)

// LabSession is one scheduled lab slot. The portal only reads these;
// scheduling itself happens elsewhere.
type LabSession struct {
	ID           int64  `db:"id" json:"id"`
	Scope        string `db:"scope" json:"scope" validate:"required,max=16"`
	Venue        string `db:"venue" json:"venue"`
	StartsAt     int64  `db:"starts_at" json:"starts_at"`
	EndsAt       int64  `db:"ends_at" json:"ends_at"`
	Participants string `db:"participants" json:"participants"`
}

func (s *LabSession) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}
