package domain

import "strings"

// Mapping associates a content source with exactly one destination.
type Mapping struct {
	SourceID      string `db:"source_id"`
	DestinationID string `db:"destination_id"`
}

// MappingView is a mapping with its destination rendered for humans.
type MappingView struct {
	Mapping
	Reference string
}

// Destination is a resolved delivery target.
type Destination struct {
	ID        string
	Reference string
}

// NormalizeSourceID lowercases a source id and strips an "r/" prefix.
func NormalizeSourceID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	id = strings.TrimPrefix(id, "/")
	id = strings.TrimPrefix(id, "r/")
	return strings.Trim(id, "/")
}
