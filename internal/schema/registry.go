package schema

import "strings"

// Listing statuses and attribute types accepted by the store's CHECK constraints.
var (
	ListingStatuses = []string{"active", "suspended", "expired"}
	AttributeTypes  = []string{"string", "number", "boolean", "enum"}
)

func id() Field {
	return Field{Name: "id", Type: TypeInt, Generated: true}
}

func createdAt(filter Operator) Field {
	return Field{Name: "created_at", Type: TypeTimestamp, Generated: true, Filter: filter}
}

var registry = []*Entity{
	{
		Kind:  KindAccessKey,
		Table: "access_keys",
		Path:  "keys",
		Fields: []Field{
			id(),
			{Name: "value", Type: TypeText, Required: true, Mutable: true, Filter: OpEquals, Rules: "bcrypt_hash"},
			{Name: "description", Type: TypeText, Mutable: true, Nullable: true, Filter: OpContains},
		},
		Unique: []Unique{{Name: "uq_access_keys_value", Fields: []string{"value"}}},
	},
	{
		Kind:  KindEntityType,
		Table: "entity_types",
		Path:  "entity-types",
		Fields: []Field{
			id(),
			{Name: "name", Type: TypeText, Required: true, Mutable: true, Filter: OpEquals, Rules: "min=1,max=50"},
			{Name: "description", Type: TypeText, Mutable: true, Nullable: true, Filter: OpContains},
		},
		Unique: []Unique{{Name: "uq_entity_types_name", Fields: []string{"name"}}},
	},
	{
		Kind:  KindDeviceClass,
		Table: "device_classes",
		Path:  "device-classes",
		Fields: []Field{
			id(),
			{Name: "name", Type: TypeText, Required: true, Mutable: true, Filter: OpEquals, Rules: "min=1,max=100"},
			{Name: "description", Type: TypeText, Mutable: true, Nullable: true, Filter: OpContains},
			{Name: "requires_inverter", Type: TypeBool, Mutable: true},
			createdAt(OpGreaterOrEqual),
		},
		Unique: []Unique{{Name: "uq_device_classes_name", Fields: []string{"name"}}},
	},
	{
		Kind:  KindDeviceClassAttribute,
		Table: "device_class_attributes",
		Path:  "device-class-attributes",
		Fields: []Field{
			id(),
			{Name: "device_class_id", Type: TypeInt, Required: true, Filter: OpEquals, Rules: "gt=0"},
			{Name: "attribute_name", Type: TypeText, Required: true, Mutable: true, Filter: OpEquals, Rules: "min=1,max=100"},
			{Name: "attribute_type", Type: TypeText, Required: true, Mutable: true, Filter: OpEquals, Rules: "oneof=" + strings.Join(AttributeTypes, " ")},
			{Name: "is_required", Type: TypeBool, Mutable: true},
			{Name: "enum_values", Type: TypeTextArray, Mutable: true, Nullable: true, Rules: "dive,min=1,max=100"},
			{Name: "description", Type: TypeText, Mutable: true, Nullable: true, Filter: OpContains},
		},
		Unique: []Unique{{
			Name:   "uq_device_class_attributes_class_name",
			Fields: []string{"device_class_id", "attribute_name"},
		}},
		ForeignKeys: []ForeignKey{
			{Name: "fk_device_class_attributes_device_class", Field: "device_class_id", References: KindDeviceClass},
		},
		Checks: []Check{{Name: "ck_device_class_attributes_type", Field: "attribute_type"}},
	},
	{
		Kind:  KindListing,
		Table: "listings",
		Path:  "listings",
		Fields: []Field{
			id(),
			{Name: "entity_type_id", Type: TypeInt, Required: true, Mutable: true, Filter: OpEquals, Rules: "gt=0"},
			{Name: "manufacturer", Type: TypeText, Required: true, Mutable: true, Filter: OpContains, Rules: "min=1,max=255"},
			{Name: "model", Type: TypeText, Required: true, Mutable: true, Filter: OpContains, Rules: "min=1,max=255"},
			{Name: "status", Type: TypeText, Mutable: true, Filter: OpEquals, Rules: "oneof=" + strings.Join(ListingStatuses, " ")},
			createdAt(OpNone),
			{Name: "updated_at", Type: TypeTimestamp, Generated: true},
		},
		Unique: []Unique{{Name: "uq_listings_manufacturer_model", Fields: []string{"manufacturer", "model"}}},
		ForeignKeys: []ForeignKey{
			{Name: "fk_listings_entity_type", Field: "entity_type_id", References: KindEntityType},
		},
		Checks: []Check{{Name: "ck_listings_status", Field: "status"}},
		Cascade: []Child{
			{Kind: KindListingDeviceClassAttribute, Table: "listing_device_class_attributes", Column: "listing_id"},
			{Kind: KindListingDeviceClass, Table: "listing_device_classes", Column: "listing_id"},
			{Kind: KindCertificate, Table: "certificates", Column: "listing_id"},
		},
	},
	{
		Kind:  KindListingDeviceClass,
		Table: "listing_device_classes",
		Path:  "listing-device-classes",
		Fields: []Field{
			id(),
			{Name: "listing_id", Type: TypeInt, Required: true, Filter: OpEquals, Rules: "gt=0"},
			{Name: "device_class_id", Type: TypeInt, Required: true, Filter: OpEquals, Rules: "gt=0"},
			{Name: "is_primary", Type: TypeBool, Mutable: true},
			createdAt(OpNone),
		},
		Unique: []Unique{{
			Name:   "uq_listing_device_classes_pair",
			Fields: []string{"listing_id", "device_class_id"},
		}},
		ForeignKeys: []ForeignKey{
			{Name: "fk_listing_device_classes_listing", Field: "listing_id", References: KindListing},
			{Name: "fk_listing_device_classes_device_class", Field: "device_class_id", References: KindDeviceClass},
		},
	},
	{
		Kind:  KindListingDeviceClassAttribute,
		Table: "listing_device_class_attributes",
		Path:  "listing-device-class-attributes",
		Fields: []Field{
			id(),
			{Name: "listing_id", Type: TypeInt, Required: true, Filter: OpEquals, Rules: "gt=0"},
			{Name: "device_class_id", Type: TypeInt, Required: true, Filter: OpEquals, Rules: "gt=0"},
			{Name: "attribute_name", Type: TypeText, Required: true, Filter: OpEquals, Rules: "min=1,max=100"},
			{Name: "attribute_value", Type: TypeText, Required: true, Mutable: true, Filter: OpContains},
			createdAt(OpNone),
		},
		Unique: []Unique{{
			Name:   "uq_listing_device_class_attributes_name",
			Fields: []string{"listing_id", "device_class_id", "attribute_name"},
		}},
		ForeignKeys: []ForeignKey{
			{Name: "fk_listing_device_class_attributes_listing", Field: "listing_id", References: KindListing},
			{Name: "fk_listing_device_class_attributes_device_class", Field: "device_class_id", References: KindDeviceClass},
		},
	},
	{
		Kind:  KindCertificate,
		Table: "certificates",
		Path:  "certificates",
		Fields: []Field{
			id(),
			{Name: "listing_id", Type: TypeInt, Required: true, Filter: OpEquals, Rules: "gt=0"},
			{Name: "expiry", Type: TypeDate, Required: true, Mutable: true, Filter: OpGreaterOrEqual},
			{Name: "certification_date", Type: TypeDate, Required: true, Mutable: true, Filter: OpGreaterOrEqual},
			{Name: "certifying_body", Type: TypeText, Required: true, Mutable: true, Filter: OpContains, Rules: "min=1,max=255"},
			{Name: "test_profiles", Type: TypeTextArray, Mutable: true, Filter: OpArrayContains, Rules: "dive,min=1,max=100"},
			{Name: "document_key", Type: TypeText, Nullable: true, Generated: true},
			{Name: "document_checksum", Type: TypeText, Nullable: true, Generated: true},
		},
		ForeignKeys: []ForeignKey{
			{Name: "fk_certificates_listing", Field: "listing_id", References: KindListing},
		},
	},
}

// All returns every registered entity in a stable order.
func All() []*Entity {
	out := make([]*Entity, len(registry))
	copy(out, registry)
	return out
}

// Lookup returns the entity registered for kind.
func Lookup(kind Kind) (*Entity, bool) {
	for _, e := range registry {
		if e.Kind == kind {
			return e, true
		}
	}
	return nil, false
}

// MustLookup is Lookup for kinds known at compile time; it panics on an unregistered kind.
func MustLookup(kind Kind) *Entity {
	e, ok := Lookup(kind)
	if !ok {
		panic("schema: unregistered kind " + string(kind))
	}
	return e
}
