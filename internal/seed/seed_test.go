package seed

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/apperrors"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/db/repositories"
)

func newCatalog(t *testing.T) (*repositories.Catalog, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repositories.NewCatalog(repositories.NewStore(sqlx.NewDb(db, "postgres"))), mock
}

// inserts hands out sequential ids per table, like serial columns on an empty database.
type inserts struct {
	mock sqlmock.Sqlmock
	ids  map[string]int64
}

func (in *inserts) expect(table string, args ...driver.Value) *sqlmock.ExpectedQuery {
	if in.ids == nil {
		in.ids = map[string]int64{}
	}
	in.ids[table]++
	q := in.mock.ExpectQuery(`INSERT INTO ` + table + ` \(`)
	if len(args) > 0 {
		q.WithArgs(args...)
	}
	return q.WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(in.ids[table]))
}

// expectCatalogue queues every insert Run issues after the optional access key.
func expectCatalogue(in *inserts) {
	in.expect("entity_types", "client", "Client-side devices and systems")
	in.expect("entity_types", "server", "Server-side devices and systems")
	for _, dc := range deviceClasses {
		in.expect("device_classes")
		for range dc.attributes {
			in.expect("device_class_attributes")
		}
	}
	for i, l := range listings {
		if i == 0 {
			in.expect("listings", int64(1), "Tesla", "Powerwall 2", "active")
		} else {
			in.expect("listings")
		}
		for range l.classes {
			in.expect("listing_device_classes")
		}
		for range l.values {
			in.expect("listing_device_class_attributes")
		}
	}
	in.expect("certificates", int64(1), sqlmock.AnyArg(), sqlmock.AnyArg(), "UL",
		pq.Array([]string{"UL1973", "UL9540", "IEEE1547"}))
	in.expect("certificates")
	in.expect("certificates")
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRun_SeedsCatalogue(t *testing.T) {
	catalog, mock := newCatalog(t)
	in := &inserts{mock: mock}
	mock.ExpectBegin()
	expectCatalogue(in)
	mock.ExpectCommit()

	sum, err := Run(context.Background(), catalog, "")
	require.NoError(t, err)
	assert.Equal(t, Summary{
		EntityTypes:           2,
		DeviceClasses:         2,
		DeviceClassAttributes: 11,
		Listings:              7,
		Links:                 8,
		AttributeValues:       44,
		Certificates:          3,
	}, sum)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_StoresBootstrapKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("cec_bootstrap"), bcrypt.MinCost)
	require.NoError(t, err)

	catalog, mock := newCatalog(t)
	in := &inserts{mock: mock}
	mock.ExpectBegin()
	in.expect("access_keys", string(hash), "bootstrap key")
	expectCatalogue(in)
	mock.ExpectCommit()

	sum, err := Run(context.Background(), catalog, string(hash))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.AccessKeys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_AlreadySeeded(t *testing.T) {
	catalog, mock := newCatalog(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO entity_types \(`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_entity_types_name"})
	mock.ExpectRollback()

	sum, err := Run(context.Background(), catalog, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConstraintViolation))
	assert.Equal(t, Summary{}, sum)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_FailsPartwayRollsBack(t *testing.T) {
	catalog, mock := newCatalog(t)
	in := &inserts{mock: mock}
	mock.ExpectBegin()
	in.expect("entity_types")
	in.expect("entity_types")
	mock.ExpectQuery(`INSERT INTO device_classes \(`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_device_classes_name"})
	mock.ExpectRollback()

	_, err := Run(context.Background(), catalog, "")
	require.Error(t, err)

	var cv *apperrors.ConstraintViolationError
	require.True(t, errors.As(err, &cv))
	assert.Equal(t, []string{"name"}, cv.Fields)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_RejectsPlaintextBootstrapKey(t *testing.T) {
	catalog, mock := newCatalog(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := Run(context.Background(), catalog, "cec_not_a_hash")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Catalogue data
// ---------------------------------------------------------------------------

func TestCatalogue_ValuesMatchDeclaredAttributes(t *testing.T) {
	declared := map[string]map[string]bool{}
	for _, dc := range deviceClasses {
		declared[dc.name] = map[string]bool{}
		for _, a := range dc.attributes {
			declared[dc.name][a.name] = true
		}
	}

	for _, l := range listings {
		linked := map[string]bool{}
		for _, c := range l.classes {
			linked[c] = true
		}
		for _, v := range l.values {
			assert.True(t, linked[v.class], "%s %s: value for unlinked class %s", l.manufacturer, l.model, v.class)
			assert.True(t, declared[v.class][v.name], "%s %s: undeclared attribute %s", l.manufacturer, l.model, v.name)
		}
	}
	for _, c := range certificates {
		assert.Less(t, c.listing, len(listings))
	}
}
