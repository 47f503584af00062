package models

// EntityType is a top-level classification of listings, e.g. "client" or "server".
type EntityType struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description"`
}
