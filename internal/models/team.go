package models

import (
	"github.com/go-playground/validator/v10"
)

const (
	ApprovalPending  = "PENDING"
	ApprovalApproved = "APPROVED"
	ApprovalRejected = "REJECTED"
)

const (
	TeamPending         = "PENDING"
	TeamReadyForReview  = "READY_FOR_REVIEW"
	TeamChangesRequired = "CHANGES_REQUIRED"
	TeamCompleted       = "COMPLETED"
)

type TeamMember struct {
	TeamID   string `db:"team_id" json:"team_id"`
	Student  string `db:"student" json:"student" validate:"required"`
	Approved bool   `db:"approved" json:"approved"`
	Leader   bool   `db:"leader" json:"leader"`
}

type Team struct {
	ID           string  `db:"id" json:"id" validate:"required"`
	Scope        string  `db:"scope" json:"scope" validate:"required,max=16"`
	ProjectID    *string `db:"project_id" json:"project_id,omitempty"`
	Status       string  `db:"status" json:"status" validate:"required,oneof=PENDING READY_FOR_REVIEW CHANGES_REQUIRED COMPLETED"`
	Guide        *string `db:"guide" json:"guide,omitempty"`
	GuideStatus  string  `db:"guide_status" json:"guide_status"`
	Expert       *string `db:"expert" json:"expert,omitempty"`
	ExpertStatus string  `db:"expert_status" json:"expert_status"`

	Members []TeamMember `db:"-" json:"members,omitempty"`
}

// HasApprovedMember reports whether student is an approved member of the
// team. Marks for anyone else are rejected upstream.
func (t *Team) HasApprovedMember(student string) bool {
	for _, m := range t.Members {
		if m.Student == student && m.Approved {
			return true
		}
	}
	return false
}

func (t *Team) Validate() error {
	validate := validator.New()
	return validate.Struct(t)
}
