package models

// TeamSnapshot is the read-only projection the phase engine and the
// submission gate work on. The store assembles it; the core never
// queries anything itself.
type TeamSnapshot struct {
	Team        Team                `json:"team"`
	Scope       Scope               `json:"scope"`
	Reviews     []Review            `json:"reviews"`
	Assignments []FacultyAssignment `json:"assignments"`
	Deadlines   []ScopeDeadline     `json:"deadlines"`
}
