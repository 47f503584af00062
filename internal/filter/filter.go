// Package filter turns query-string filters into SQL predicates. Each field's operator comes
// from the schema registry; the predicates are ANDed onto a go-sqlbuilder SELECT.
package filter

import (
	"sort"
	"strings"

	"github.com/huandu/go-sqlbuilder"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/apperrors"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/schema"
)

type options struct {
	qualifier string
	exact     map[string]bool
}

// Option adjusts how Conditions builds predicates.
type Option func(*options)

// Qualify prefixes every column with a table name or alias.
func Qualify(table string) Option {
	return func(o *options) { o.qualifier = table }
}

// ExactMatch restricts the accepted fields to the given set and compares all of them with
// equality, regardless of their registered operator.
func ExactMatch(fields ...string) Option {
	return func(o *options) {
		o.exact = make(map[string]bool, len(fields))
		for _, f := range fields {
			o.exact[f] = true
		}
	}
}

// Conditions builds one predicate per supplied filter, in key order. A key the entity does not
// allow filtering on fails with *apperrors.UnsupportedFilterError; a value that does not parse
// as the column's type fails with *apperrors.ValidationError.
func Conditions(sb *sqlbuilder.SelectBuilder, e *schema.Entity, filters map[string]string, opts ...Option) ([]string, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]string, 0, len(keys))
	for _, key := range keys {
		field, ok := e.Field(key)
		op := field.Filter
		if o.exact != nil {
			if !o.exact[key] {
				ok = false
			}
			op = schema.OpEquals
		}
		if !ok || op == schema.OpNone {
			return nil, &apperrors.UnsupportedFilterError{Entity: string(e.Kind), Field: key}
		}

		value, err := field.Parse(filters[key])
		if err != nil {
			return nil, err
		}

		col := key
		if o.qualifier != "" {
			col = o.qualifier + "." + key
		}

		switch op {
		case schema.OpEquals:
			conds = append(conds, sb.Equal(col, value))
		case schema.OpContains:
			conds = append(conds, sb.ILike(col, "%"+escapeLike(filters[key])+"%"))
		case schema.OpGreaterOrEqual:
			conds = append(conds, sb.GreaterEqualThan(col, value))
		case schema.OpArrayContains:
			conds = append(conds, sb.Var(value)+" = ANY("+col+")")
		}
	}
	return conds, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in user input match literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
