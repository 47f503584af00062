package models

// AccessKey is a stored credential. Value holds the bcrypt hash, never the plaintext key.
type AccessKey struct {
	ID          int64   `db:"id" json:"id"`
	Value       string  `db:"value" json:"value"`
	Description *string `db:"description" json:"description"`
}
