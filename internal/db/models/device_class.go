package models

import (
	"time"

	"github.com/lib/pq"
)

// DeviceClass is a category of device such as a battery energy storage system or an inverter.
type DeviceClass struct {
	ID               int64     `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	Description      *string   `db:"description" json:"description"`
	RequiresInverter bool      `db:"requires_inverter" json:"requires_inverter"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// DeviceClassAttribute declares one attribute a device class carries. It is the schema of an
// attribute, not its value.
type DeviceClassAttribute struct {
	ID            int64          `db:"id" json:"id"`
	DeviceClassID int64          `db:"device_class_id" json:"device_class_id"`
	AttributeName string         `db:"attribute_name" json:"attribute_name"`
	AttributeType string         `db:"attribute_type" json:"attribute_type"`
	IsRequired    bool           `db:"is_required" json:"is_required"`
	EnumValues    pq.StringArray `db:"enum_values" json:"enum_values"`
	Description   *string        `db:"description" json:"description"`
}
