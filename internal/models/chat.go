package models

import "time"

// ChatScopeMapping associates a telegram chat with an academic scope so
// bot commands can resolve which batch they operate on.
type ChatScopeMapping struct {
	Scope           string    `json:"scope"`
	Name            string    `json:"name"`
	Comment         string    `json:"comment"`
	AssociationTime time.Time `json:"association_time"`
	RegisteredBy    int64     `json:"registered_by"`
}
