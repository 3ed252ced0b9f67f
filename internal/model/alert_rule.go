package model

import "time"

// AlertRule is a user-authored monitoring rule expressed in natural language.
// Rule execution lives elsewhere; this core only reads the query text to
// classify which canonical alert types a user has enabled.
type AlertRule struct {
	CreatedAt            time.Time
	ID                   string
	UserID               string
	Name                 string
	NaturalLanguageQuery string
	Description          string
	IsActive             bool
}
