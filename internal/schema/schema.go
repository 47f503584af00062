// Package schema is the static registry describing every entity kind the API manages: its
// table, columns and their types, which fields a client may set on create or change on update,
// the store-level constraints, and the filter operator each column accepts.
//
// The registry is data, not behaviour. The repository, the filter builder and the route binder
// all consult it so that adding a column is a one-line change here plus a migration.
package schema

import (
	"slices"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/apperrors"
)

// Kind identifies an entity in the registry.
type Kind string

const (
	KindAccessKey                   Kind = "access_key"
	KindEntityType                  Kind = "entity_type"
	KindDeviceClass                 Kind = "device_class"
	KindDeviceClassAttribute        Kind = "device_class_attribute"
	KindListing                     Kind = "listing"
	KindListingDeviceClass          Kind = "listing_device_class"
	KindListingDeviceClassAttribute Kind = "listing_device_class_attribute"
	KindCertificate                 Kind = "certificate"
)

// FieldType is the storage type of a column, used to coerce payload and query-string values.
type FieldType int

const (
	TypeInt FieldType = iota
	TypeText
	TypeBool
	TypeDate
	TypeTimestamp
	TypeTextArray
)

func (t FieldType) String() string {
	switch t {
	case TypeInt:
		return "integer"
	case TypeText:
		return "string"
	case TypeBool:
		return "boolean"
	case TypeDate:
		return "date (YYYY-MM-DD)"
	case TypeTimestamp:
		return "timestamp"
	case TypeTextArray:
		return "array of strings"
	default:
		return "unknown"
	}
}

// Operator is the predicate a filter on a field produces.
type Operator int

const (
	// OpNone marks a field that cannot be filtered on.
	OpNone Operator = iota
	// OpEquals is an exact match.
	OpEquals
	// OpContains is a case-insensitive substring match.
	OpContains
	// OpGreaterOrEqual matches stored values at or after the supplied one.
	OpGreaterOrEqual
	// OpArrayContains matches when the supplied value is an element of the stored sequence.
	OpArrayContains
)

func (o Operator) String() string {
	switch o {
	case OpEquals:
		return "equals"
	case OpContains:
		return "contains"
	case OpGreaterOrEqual:
		return "greater-or-equal"
	case OpArrayContains:
		return "array-contains"
	default:
		return "none"
	}
}

// Field describes one column.
type Field struct {
	Name string
	Type FieldType
	// Required fields must be present (and non-null) in a create payload.
	Required bool
	// Mutable fields may appear in an update payload.
	Mutable bool
	// Nullable fields accept an explicit null.
	Nullable bool
	// Generated fields are assigned by the store and never accepted from clients.
	Generated bool
	Filter    Operator
	// Rules is a go-playground/validator tag applied to non-null values.
	Rules string
}

// Writable reports whether a client may supply the field when creating a row.
func (f Field) Writable() bool { return !f.Generated }

// Unique is a named multi-column uniqueness constraint.
type Unique struct {
	Name   string
	Fields []string
}

// ForeignKey is a named reference from Field to the id of another kind.
type ForeignKey struct {
	Name       string
	Field      string
	References Kind
}

// Check is a named CHECK constraint over a single field.
type Check struct {
	Name  string
	Field string
}

// Child is a dependent table removed together with its parent row.
type Child struct {
	Kind   Kind
	Table  string
	Column string
}

// Entity is the full description of one kind.
type Entity struct {
	Kind  Kind
	Table string
	// Path is the plural URL segment the route binder mounts the kind under.
	Path        string
	Fields      []Field
	Unique      []Unique
	ForeignKeys []ForeignKey
	Checks      []Check
	// Cascade lists children deleted in the same transaction as the parent.
	Cascade []Child
}

// Field looks up a field by column name.
func (e *Entity) Field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Columns returns every column in declaration order.
func (e *Entity) Columns() []string {
	cols := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		cols[i] = f.Name
	}
	return cols
}

// Filterable returns the names of fields that accept a filter, in declaration order.
func (e *Entity) Filterable() []string {
	var names []string
	for _, f := range e.Fields {
		if f.Filter != OpNone {
			names = append(names, f.Name)
		}
	}
	return names
}

// HasUpdatedAt reports whether updates must refresh an updated_at column.
func (e *Entity) HasUpdatedAt() bool {
	_, ok := e.Field("updated_at")
	return ok
}

// Constraint resolves a store constraint name to the kind and fields it covers.
func (e *Entity) Constraint(name string) (kind string, fields []string, ok bool) {
	for _, u := range e.Unique {
		if u.Name == name {
			return apperrors.ConstraintUnique, slices.Clone(u.Fields), true
		}
	}
	for _, fk := range e.ForeignKeys {
		if fk.Name == name {
			return apperrors.ConstraintForeignKey, []string{fk.Field}, true
		}
	}
	for _, c := range e.Checks {
		if c.Name == name {
			return apperrors.ConstraintCheck, []string{c.Field}, true
		}
	}
	return "", nil, false
}
