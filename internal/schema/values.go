package schema

import (
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/apperrors"
)

// DateLayout is the wire and query-string format of date columns.
const DateLayout = "2006-01-02"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Access keys are stored as bcrypt hashes only; reject anything bcrypt cannot parse.
	_ = v.RegisterValidation("bcrypt_hash", func(fl validator.FieldLevel) bool {
		_, err := bcrypt.Cost([]byte(fl.Field().String()))
		return err == nil
	})
	return v
}

// Value is one coerced column assignment.
type Value struct {
	Field Field
	Arg   any
}

// Values is an ordered set of assignments, in the entity's declaration order.
type Values []Value

// Names returns the column names in order.
func (vs Values) Names() []string {
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = v.Field.Name
	}
	return names
}

// CreateValues validates a create payload and coerces it into column assignments. Fields the
// payload omits are left to the store's defaults.
func (e *Entity) CreateValues(payload map[string]any) (Values, error) {
	for _, key := range sortedKeys(payload) {
		f, ok := e.Field(key)
		if !ok {
			return nil, apperrors.NewValidationError(key, "is not a field of %s", e.Kind)
		}
		if !f.Writable() {
			return nil, apperrors.NewValidationError(key, "is assigned by the server")
		}
	}

	var out Values
	for _, f := range e.Fields {
		if !f.Writable() {
			continue
		}
		raw, present := payload[f.Name]
		if !present || raw == nil {
			if f.Required {
				return nil, apperrors.NewValidationError(f.Name, "is required")
			}
			if !present {
				continue
			}
		}
		arg, err := f.Coerce(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, Value{Field: f, Arg: arg})
	}
	return out, nil
}

// UpdateValues validates a partial update payload. Only the fields present are returned; an
// explicit null is kept as a nil assignment when the field is nullable.
func (e *Entity) UpdateValues(payload map[string]any) (Values, error) {
	for _, key := range sortedKeys(payload) {
		f, ok := e.Field(key)
		if !ok {
			return nil, apperrors.NewValidationError(key, "is not a field of %s", e.Kind)
		}
		if !f.Mutable {
			return nil, apperrors.NewValidationError(key, "cannot be updated")
		}
	}

	var out Values
	for _, f := range e.Fields {
		raw, present := payload[f.Name]
		if !present {
			continue
		}
		arg, err := f.Coerce(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, Value{Field: f, Arg: arg})
	}
	return out, nil
}

// Coerce converts a JSON-decoded payload value into the Go value bound for the column and
// applies the field's rules.
func (f Field) Coerce(raw any) (any, error) {
	if raw == nil {
		if !f.Nullable {
			return nil, apperrors.NewValidationError(f.Name, "must not be null")
		}
		return nil, nil
	}

	var (
		v  any
		ok bool
	)
	switch f.Type {
	case TypeInt:
		v, ok = toInt64(raw)
	case TypeText:
		v, ok = raw.(string)
	case TypeBool:
		v, ok = raw.(bool)
	case TypeDate:
		v, ok = toTime(raw, DateLayout)
	case TypeTimestamp:
		v, ok = toTime(raw, time.RFC3339, "2006-01-02T15:04:05", DateLayout)
	case TypeTextArray:
		v, ok = toStrings(raw)
	}
	if !ok {
		return nil, apperrors.NewValidationError(f.Name, "must be %s", withArticle(f.Type))
	}

	if f.Rules != "" {
		if err := validate.Var(v, f.Rules); err != nil {
			return nil, ruleError(f.Name, err)
		}
	}
	return v, nil
}

// Parse converts a query-string value into the Go value compared against the column.
// Array columns parse to a single element.
func (f Field) Parse(raw string) (any, error) {
	var (
		v   any
		err error
	)
	switch f.Type {
	case TypeInt:
		v, err = strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	case TypeBool:
		v, err = strconv.ParseBool(raw)
	case TypeDate, TypeTimestamp:
		layouts := []string{DateLayout}
		if f.Type == TypeTimestamp {
			layouts = []string{time.RFC3339, "2006-01-02T15:04:05", DateLayout}
		}
		t, ok := toTime(raw, layouts...)
		if !ok {
			err = errors.New("bad time")
		}
		v = t
	default:
		v = raw
	}
	if err != nil {
		expect := f.Type
		if expect == TypeTextArray {
			expect = TypeText
		}
		return nil, apperrors.NewValidationError(f.Name, "must be %s", withArticle(expect))
	}
	return v, nil
}

func toInt64(raw any) (int64, bool) {
	switch n := raw.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

func toTime(raw any, layouts ...string) (time.Time, bool) {
	switch t := raw.(type) {
	case time.Time:
		if len(layouts) == 1 && layouts[0] == DateLayout {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
		return t, true
	case string:
		for _, layout := range layouts {
			if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func toStrings(raw any) ([]string, bool) {
	switch items := raw.(type) {
	case []string:
		return items, true
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func ruleError(field string, err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.NewValidationError(field, "is invalid")
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "oneof":
		return apperrors.NewValidationError(field, "must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "max":
		return apperrors.NewValidationError(field, "must be at most %s characters", fe.Param())
	case "min":
		return apperrors.NewValidationError(field, "must be at least %s characters", fe.Param())
	case "gt":
		return apperrors.NewValidationError(field, "must be greater than %s", fe.Param())
	case "bcrypt_hash":
		return apperrors.NewValidationError(field, "must be a bcrypt hash")
	default:
		return apperrors.NewValidationError(field, "failed %q rule", fe.Tag())
	}
}

func withArticle(t FieldType) string {
	s := t.String()
	switch s[0] {
	case 'a', 'e', 'i', 'o', 'u':
		return "an " + s
	}
	return "a " + s
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
