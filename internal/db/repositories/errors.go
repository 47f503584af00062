package repositories

import (
	"errors"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/apperrors"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/schema"
)

// Postgres SQLSTATE codes the repository translates.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
	pqNotNullViolation    = "23502"
)

// translate converts driver errors carrying a constraint violation into the apperrors
// taxonomy. Anything else is returned unchanged.
func translate(e *schema.Entity, err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	var kind string
	switch string(pqErr.Code) {
	case pqUniqueViolation:
		kind = apperrors.ConstraintUnique
	case pqForeignKeyViolation:
		kind = apperrors.ConstraintForeignKey
	case pqCheckViolation:
		kind = apperrors.ConstraintCheck
	case pqNotNullViolation:
		return apperrors.NewValidationError(pqErr.Column, "must not be null")
	default:
		return err
	}

	cv := &apperrors.ConstraintViolationError{
		Entity:     string(e.Kind),
		Kind:       kind,
		Constraint: pqErr.Constraint,
		Err:        err,
	}
	// A delete can trip a foreign key declared by another entity, so fall back to the whole
	// registry when the constraint is not one of e's own.
	if _, fields, ok := e.Constraint(pqErr.Constraint); ok {
		cv.Fields = fields
	} else {
		for _, other := range schema.All() {
			if _, fields, ok := other.Constraint(pqErr.Constraint); ok {
				cv.Fields = fields
				break
			}
		}
	}
	if cv.Fields == nil {
		slog.Debug("constraint not declared in schema registry", "entity", e.Kind, "constraint", pqErr.Constraint)
	}
	return cv
}
