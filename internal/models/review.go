package models

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

const (
	ReviewPending         = "PENDING"
	ReviewCompleted       = "COMPLETED"
	ReviewChangesRequired = "CHANGES_REQUIRED"
	ReviewNotCompleted    = "NOT_COMPLETED"
)

type Review struct {
	ID               int64   `db:"id" json:"id"`
	TeamID           string  `db:"team_id" json:"team_id" validate:"required"`
	Phase            int     `db:"phase" json:"phase" validate:"required,min=1"`
	Faculty          string  `db:"faculty" json:"faculty" validate:"required"`
	Status           string  `db:"status" json:"status" validate:"required,oneof=PENDING COMPLETED CHANGES_REQUIRED NOT_COMPLETED"`
	Content          string  `db:"content" json:"content"`
	CreatedAt        int64   `db:"created_at" json:"created_at"`
	ResubmissionNote string  `db:"resubmission_note" json:"resubmission_note,omitempty"`
	ResubmittedAt    *int64  `db:"resubmitted_at" json:"resubmitted_at,omitempty"`

	Marks []ReviewMark `db:"-" json:"marks,omitempty"`
}

// Resolved reports whether the review concludes its phase. A
// CHANGES_REQUIRED review stays open for resubmission, so it does not
// count as resolved.
func (r *Review) Resolved() bool {
	return r.Status == ReviewCompleted || r.Status == ReviewNotCompleted
}

type ReviewMark struct {
	ReviewID   int64   `db:"review_id" json:"review_id"`
	Student    string  `db:"student" json:"student" validate:"required"`
	Marks      float64 `db:"marks" json:"marks"`
	Absent     bool    `db:"absent" json:"absent"`
	RubricJSON *string `db:"rubric" json:"rubric,omitempty"`
}

type Criterion struct {
	Score float64 `json:"score"`
	Max   float64 `json:"max"`
}

// Rubric is the structured variant of a mark: named criteria with their
// maxima plus a declared total for the phase.
type Rubric struct {
	Criteria map[string]Criterion
	Total    float64
}

// Rubric parses the stored criterion blob. Any malformed blob degrades
// to flat marks: the method returns nil and callers fall back to the
// plain Marks value.
func (m *ReviewMark) Rubric() *Rubric {
	if m.RubricJSON == nil || *m.RubricJSON == "" {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(*m.RubricJSON), &raw); err != nil {
		return nil
	}

	rubric := &Rubric{Criteria: make(map[string]Criterion)}
	for name, blob := range raw {
		if name == "_total" {
			if err := json.Unmarshal(blob, &rubric.Total); err != nil {
				return nil
			}
			continue
		}
		var c Criterion
		if err := json.Unmarshal(blob, &c); err != nil {
			return nil
		}
		rubric.Criteria[name] = c
	}

	return rubric
}

func (r *Review) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

func (m *ReviewMark) Validate() error {
	validate := validator.New()
	return validate.Struct(m)
}
