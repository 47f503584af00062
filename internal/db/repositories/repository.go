package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/apperrors"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/filter"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/schema"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/telemetry"
)

// Query selects either one row by id or a filtered list. When ID is set the filters are
// ignored.
type Query struct {
	ID      *int64
	Filters map[string]string
}

// Result is the outcome of Get: Item (nil when the id does not exist) for a by-id query,
// Items (never nil) otherwise.
type Result[T any] struct {
	ByID  bool
	Item  *T
	Items []T
}

// Repository implements get, create, update and delete for one entity kind. T is the row
// type; its db tags must cover the entity's columns.
type Repository[T any] struct {
	store   *Store
	entity  *schema.Entity
	columns []string
}

// New builds the repository for kind. It panics if kind is not registered.
func New[T any](store *Store, kind schema.Kind) *Repository[T] {
	e := schema.MustLookup(kind)
	return &Repository[T]{store: store, entity: e, columns: e.Columns()}
}

// Entity returns the schema the repository is driven by.
func (r *Repository[T]) Entity() *schema.Entity {
	return r.entity
}

// Get dispatches to GetByID or List.
func (r *Repository[T]) Get(ctx context.Context, q Query) (Result[T], error) {
	if q.ID != nil {
		item, err := r.GetByID(ctx, *q.ID)
		return Result[T]{ByID: true, Item: item}, err
	}
	items, err := r.List(ctx, q.Filters)
	return Result[T]{Items: items}, err
}

// GetByID returns the row with id, or nil if it does not exist.
func (r *Repository[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(r.columns...).From(r.entity.Table)
	sb.Where(sb.Equal("id", id))
	query, args := sb.Build()

	var (
		row   T
		found bool
	)
	err := r.store.run(ctx, true, func(q Querier) error {
		err := q.GetContext(ctx, &row, query, args...)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil {
		return nil, r.fail(ctx, "get", fmt.Errorf("failed to get %s %d: %w", r.entity.Kind, id, err))
	}
	if !found {
		r.observe("get", telemetry.OutcomeNotFound)
		return nil, nil
	}
	r.observe("get", telemetry.OutcomeOK)
	return &row, nil
}

// List returns every row matching all filters, ordered by id. No filters returns the whole
// table.
func (r *Repository[T]) List(ctx context.Context, filters map[string]string) ([]T, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(r.columns...).From(r.entity.Table)
	conds, err := filter.Conditions(sb, r.entity, filters)
	if err != nil {
		return nil, r.fail(ctx, "list", err)
	}
	if len(conds) > 0 {
		sb.Where(conds...)
	}
	sb.OrderBy("id")
	query, args := sb.Build()

	rows := make([]T, 0)
	err = r.store.run(ctx, true, func(q Querier) error {
		return q.SelectContext(ctx, &rows, query, args...)
	})
	if err != nil {
		return nil, r.fail(ctx, "list", fmt.Errorf("failed to list %s: %w", r.entity.Kind, err))
	}
	r.observe("list", telemetry.OutcomeOK)
	return rows, nil
}

// Create validates payload, inserts it and returns the stored row including the
// store-assigned id and timestamps.
func (r *Repository[T]) Create(ctx context.Context, payload map[string]any) (*T, error) {
	values, err := r.entity.CreateValues(payload)
	if err != nil {
		return nil, r.fail(ctx, "create", err)
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(r.entity.Table)
	ib.Cols(values.Names()...)
	ib.Values(bindArgs(values)...)
	ib.Returning(r.columns...)
	query, args := ib.Build()

	var row T
	err = r.store.run(ctx, false, func(q Querier) error {
		return q.GetContext(ctx, &row, query, args...)
	})
	if err != nil {
		return nil, r.fail(ctx, "create", fmt.Errorf("failed to create %s: %w", r.entity.Kind, translate(r.entity, err)))
	}
	r.observe("create", telemetry.OutcomeOK)
	return &row, nil
}

// Update applies the fields present in payload to row id and leaves the rest untouched. An
// empty payload changes nothing. Returns nil when id does not exist.
func (r *Repository[T]) Update(ctx context.Context, id int64, payload map[string]any) (*T, error) {
	values, err := r.entity.UpdateValues(payload)
	if err != nil {
		return nil, r.fail(ctx, "update", err)
	}
	if len(values) == 0 {
		return r.GetByID(ctx, id)
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(r.entity.Table)
	assignments := make([]string, 0, len(values)+1)
	for i, arg := range bindArgs(values) {
		assignments = append(assignments, ub.Assign(values[i].Field.Name, arg))
	}
	if r.entity.HasUpdatedAt() {
		assignments = append(assignments, ub.Assign("updated_at", sqlbuilder.Raw("NOW()")))
	}
	ub.Set(assignments...)
	ub.Where(ub.Equal("id", id))
	query, args := ub.Build()
	query += " RETURNING " + strings.Join(r.columns, ", ")

	var (
		row   T
		found bool
	)
	err = r.store.run(ctx, false, func(q Querier) error {
		err := q.GetContext(ctx, &row, query, args...)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil {
		return nil, r.fail(ctx, "update", fmt.Errorf("failed to update %s %d: %w", r.entity.Kind, id, translate(r.entity, err)))
	}
	if !found {
		r.observe("update", telemetry.OutcomeNotFound)
		return nil, nil
	}
	r.observe("update", telemetry.OutcomeOK)
	return &row, nil
}

// Delete removes row id together with the children the entity cascades to, all in one
// transaction. It reports whether the row existed.
func (r *Repository[T]) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := r.store.run(ctx, false, func(q Querier) error {
		for _, child := range r.entity.Cascade {
			db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
			db.DeleteFrom(child.Table)
			db.Where(db.Equal(child.Column, id))
			query, args := db.Build()
			if _, err := q.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to delete %s of %s %d: %w", child.Table, r.entity.Kind, id, err)
			}
		}

		db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
		db.DeleteFrom(r.entity.Table)
		db.Where(db.Equal("id", id))
		query, args := db.Build()
		res, err := q.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = n > 0
		return nil
	})
	if err != nil {
		return false, r.fail(ctx, "delete", fmt.Errorf("failed to delete %s %d: %w", r.entity.Kind, id, translate(r.entity, err)))
	}
	if !deleted {
		r.observe("delete", telemetry.OutcomeNotFound)
		return false, nil
	}
	r.observe("delete", telemetry.OutcomeOK)
	return true, nil
}

func (r *Repository[T]) observe(operation, outcome string) {
	telemetry.RepositoryOperationsTotal.WithLabelValues(string(r.entity.Kind), operation, outcome).Inc()
}

// fail records the outcome of a failed operation and logs storage errors that are not part of
// the client-facing taxonomy.
func (r *Repository[T]) fail(ctx context.Context, operation string, err error) error {
	outcome := telemetry.OutcomeError
	switch {
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrUnsupportedFilter):
		outcome = telemetry.OutcomeInvalid
	case errors.Is(err, apperrors.ErrConstraintViolation):
		outcome = telemetry.OutcomeConstraint
	}
	r.observe(operation, outcome)

	if outcome == telemetry.OutcomeError {
		slog.ErrorContext(ctx, "repository operation failed",
			"entity", r.entity.Kind, "operation", operation, "error", err)
	} else {
		slog.DebugContext(ctx, "repository operation rejected",
			"entity", r.entity.Kind, "operation", operation, "error", err)
	}
	return err
}

func bindArgs(values schema.Values) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v.Arg
		if v.Field.Type == schema.TypeTextArray && v.Arg != nil {
			args[i] = pq.Array(v.Arg)
		}
	}
	return args
}
