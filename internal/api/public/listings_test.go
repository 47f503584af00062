package public

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/db/repositories"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---------------------------------------------------------------------------
// Column definitions and helpers
// ---------------------------------------------------------------------------

var (
	created = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	graphListingCols = []string{
		"id", "entity_type_id", "manufacturer", "model", "status", "created_at", "updated_at",
		"entity_type_name", "entity_type_description",
	}
	linkCols  = []string{"link_id", "listing_id", "is_primary", "id", "name", "description", "requires_inverter", "created_at"}
	valueCols = []string{"id", "listing_id", "device_class_id", "attribute_name", "attribute_value", "created_at"}
	certCols  = []string{
		"id", "listing_id", "expiry", "certification_date", "certifying_body", "test_profiles",
		"document_key", "document_checksum",
	}
)

const graphListingsQuery = `FROM listings l JOIN entity_types et ON et.id = l.entity_type_id`

func newPublicRouter(t *testing.T, archive storage.Storage) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	catalog := repositories.NewCatalog(repositories.NewStore(sqlx.NewDb(db, "postgres")))
	r := gin.New()
	RegisterRoutes(r.Group(""), catalog, archive, 15*time.Minute)
	return mock, r
}

func get(r *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

// expectBareChildren queues the child batches for listings that have no device classes,
// attribute values or certificates.
func expectBareChildren(mock sqlmock.Sqlmock, ids ...int64) {
	mock.ExpectQuery("FROM listing_device_classes ldc").
		WithArgs(pq.Array(ids)).WillReturnRows(sqlmock.NewRows(linkCols))
	mock.ExpectQuery("FROM listing_device_class_attributes").
		WithArgs(pq.Array(ids)).WillReturnRows(sqlmock.NewRows(valueCols))
	mock.ExpectQuery("FROM certificates").
		WithArgs(pq.Array(ids)).WillReturnRows(sqlmock.NewRows(certCols))
}

// ---------------------------------------------------------------------------
// GetListingsHandler tests
// ---------------------------------------------------------------------------

func TestGetListings_ByID(t *testing.T) {
	mock, r := newPublicRouter(t, nil)
	mock.ExpectBegin()
	mock.ExpectQuery(graphListingsQuery + ` WHERE l.id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(graphListingCols).
			AddRow(1, 1, "Tesla", "Powerwall 2", "active", created, created, "client", nil))
	expectBareChildren(mock, 1)
	mock.ExpectCommit()

	w := get(r, "/listings?id=1&entity_type=server")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Powerwall 2", body["model"])
	assert.Equal(t, "client", body["entity_type"].(map[string]any)["name"])
	assert.Equal(t, []any{}, body["device_classes"])
	assert.Equal(t, []any{}, body["certificates"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetListings_ByIDNotFound(t *testing.T) {
	mock, r := newPublicRouter(t, nil)
	mock.ExpectBegin()
	mock.ExpectQuery(graphListingsQuery).WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(graphListingCols))
	mock.ExpectCommit()

	w := get(r, "/listings?id=404")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Listing not found"}`, w.Body.String())
}

func TestGetListings_EntityTypeName(t *testing.T) {
	mock, r := newPublicRouter(t, nil)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM entity_types WHERE name = $1")).
		WithArgs("server").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}).AddRow(2, "server", nil))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery(graphListingsQuery + ` WHERE l.entity_type_id = \$1 AND l.status = \$2 ORDER BY l.id`).
		WithArgs(int64(2), "active").
		WillReturnRows(sqlmock.NewRows(graphListingCols).
			AddRow(4, 2, "SolarEdge", "SE7600H-US", "active", created, created, "server", nil).
			AddRow(6, 2, "Fronius", "Primo 8.2-1", "active", created, created, "server", nil))
	expectBareChildren(mock, 4, 6)
	mock.ExpectCommit()

	w := get(r, "/listings?entity_type=server&status=active")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var items []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "SolarEdge", items[0]["manufacturer"])
	assert.Equal(t, "Fronius", items[1]["manufacturer"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetListings_UnknownEntityType(t *testing.T) {
	mock, r := newPublicRouter(t, nil)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM entity_types").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}))
	mock.ExpectCommit()

	w := get(r, "/listings?entity_type=gateway")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetListings_NoMatches(t *testing.T) {
	mock, r := newPublicRouter(t, nil)
	mock.ExpectBegin()
	mock.ExpectQuery(graphListingsQuery + ` WHERE l.manufacturer = \$1`).
		WithArgs("Nobody").
		WillReturnRows(sqlmock.NewRows(graphListingCols))
	mock.ExpectCommit()

	w := get(r, "/listings?manufacturer=Nobody")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGetListings_UnsupportedFilter(t *testing.T) {
	mock, r := newPublicRouter(t, nil)

	w := get(r, "/listings?created_at=2024-01-01")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "created_at")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetListings_BadID(t *testing.T) {
	_, r := newPublicRouter(t, nil)

	w := get(r, "/listings?id=one")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetListings_StoreError(t *testing.T) {
	mock, r := newPublicRouter(t, nil)
	mock.ExpectBegin()
	mock.ExpectQuery(graphListingsQuery).WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	w := get(r, "/listings")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}
