package models

import "time"

// Listing is a certified product. It owns its device-class links, attribute values and
// certificates.
type Listing struct {
	ID           int64     `db:"id" json:"id"`
	EntityTypeID int64     `db:"entity_type_id" json:"entity_type_id"`
	Manufacturer string    `db:"manufacturer" json:"manufacturer"`
	Model        string    `db:"model" json:"model"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ListingDeviceClass links a listing to one of its device classes.
type ListingDeviceClass struct {
	ID            int64     `db:"id" json:"id"`
	ListingID     int64     `db:"listing_id" json:"listing_id"`
	DeviceClassID int64     `db:"device_class_id" json:"device_class_id"`
	IsPrimary     bool      `db:"is_primary" json:"is_primary"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ListingDeviceClassAttribute is the value a listing has for one device-class attribute.
type ListingDeviceClassAttribute struct {
	ID             int64     `db:"id" json:"id"`
	ListingID      int64     `db:"listing_id" json:"listing_id"`
	DeviceClassID  int64     `db:"device_class_id" json:"device_class_id"`
	AttributeName  string    `db:"attribute_name" json:"attribute_name"`
	AttributeValue string    `db:"attribute_value" json:"attribute_value"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
