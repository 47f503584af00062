package models

import "github.com/lib/pq"

// Certificate records a certification of a listing.
type Certificate struct {
	ID                int64          `db:"id" json:"id"`
	ListingID         int64          `db:"listing_id" json:"listing_id"`
	Expiry            Date           `db:"expiry" json:"expiry"`
	CertificationDate Date           `db:"certification_date" json:"certification_date"`
	CertifyingBody    string         `db:"certifying_body" json:"certifying_body"`
	TestProfiles      pq.StringArray `db:"test_profiles" json:"test_profiles"`
	DocumentKey       *string        `db:"document_key" json:"-"`
	DocumentChecksum  *string        `db:"document_checksum" json:"document_checksum,omitempty"`
}

// HasDocument reports whether a certificate document has been archived.
func (c *Certificate) HasDocument() bool {
	return c.DocumentKey != nil && *c.DocumentKey != ""
}
