package models

// ListingDetail is a listing with its whole graph loaded: entity type, device classes (each
// with its attribute schema), attribute values and certificates.
type ListingDetail struct {
	Listing
	EntityType    EntityType                    `json:"entity_type"`
	DeviceClasses []ListingDeviceClassDetail    `json:"device_classes"`
	Attributes    []ListingDeviceClassAttribute `json:"listing_device_class_attributes"`
	Certificates  []Certificate                 `json:"certificates"`
}

// ListingDeviceClassDetail is one device-class link of a ListingDetail.
type ListingDeviceClassDetail struct {
	ListingDeviceClassID int64             `json:"listing_device_class_id"`
	IsPrimary            bool              `json:"is_primary"`
	DeviceClass          DeviceClassDetail `json:"device_class"`
}

// DeviceClassDetail is a device class with its attribute schema.
type DeviceClassDetail struct {
	DeviceClass
	Attributes []DeviceClassAttribute `json:"attributes"`
}
