package public

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/config"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/storage"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/storage/local"
)

// urlStorage hands out fixed URLs, like the cloud backends do.
type urlStorage struct {
	url string
	err error
	ttl time.Duration
}

func (s *urlStorage) Upload(context.Context, string, io.Reader, int64, string) (*storage.UploadResult, error) {
	return nil, errors.New("not implemented")
}
func (s *urlStorage) Download(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}
func (s *urlStorage) Delete(context.Context, string) error { return nil }
func (s *urlStorage) GetURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	s.ttl = ttl
	if s.err != nil {
		return "", s.err
	}
	return s.url + key, nil
}
func (s *urlStorage) Exists(context.Context, string) (bool, error) { return true, nil }

func expectCertificate(mock sqlmock.Sqlmock, id int64, key, sum any) {
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM certificates WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(certCols).
			AddRow(id, 1, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
				"UL", "{UL1973,UL9540}", key, sum))
	mock.ExpectCommit()
}

// ---------------------------------------------------------------------------
// DownloadHandler tests
// ---------------------------------------------------------------------------

func TestDownload_RedirectsToArchiveURL(t *testing.T) {
	archive := &urlStorage{url: "https://archive.example.com/"}
	mock, r := newPublicRouter(t, archive)
	expectCertificate(mock, 3, "certificates/3/abc", "deadbeef")

	w := get(r, "/certificates/3/document")

	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, "https://archive.example.com/certificates/3/abc", w.Header().Get("Location"))
	assert.Equal(t, 15*time.Minute, archive.ttl)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDownload_StreamsFromLocalArchive(t *testing.T) {
	archive, err := local.New(&config.LocalStorageConfig{BasePath: t.TempDir()})
	require.NoError(t, err)
	_, err = archive.Upload(context.Background(), "certificates/3/abc", strings.NewReader("%PDF-1.7"), 8, "application/pdf")
	require.NoError(t, err)

	mock, r := newPublicRouter(t, archive)
	expectCertificate(mock, 3, "certificates/3/abc", "deadbeef")

	w := get(r, "/certificates/3/document")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "%PDF-1.7", w.Body.String())
	assert.Equal(t, `"deadbeef"`, w.Header().Get("ETag"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "certificate-3")
}

func TestDownload_CertificateNotFound(t *testing.T) {
	mock, r := newPublicRouter(t, &urlStorage{})
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM certificates WHERE id = \$1`).WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(certCols))
	mock.ExpectCommit()

	w := get(r, "/certificates/9/document")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Certificate not found"}`, w.Body.String())
}

func TestDownload_NoDocument(t *testing.T) {
	mock, r := newPublicRouter(t, &urlStorage{})
	expectCertificate(mock, 3, nil, nil)

	w := get(r, "/certificates/3/document")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Certificate has no document"}`, w.Body.String())
}

func TestDownload_ObjectMissingFromArchive(t *testing.T) {
	archive := &urlStorage{err: storage.ErrNotFound}
	mock, r := newPublicRouter(t, archive)
	expectCertificate(mock, 3, "certificates/3/gone", "deadbeef")

	w := get(r, "/certificates/3/document")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownload_LocalObjectMissing(t *testing.T) {
	archive, err := local.New(&config.LocalStorageConfig{BasePath: t.TempDir()})
	require.NoError(t, err)
	mock, r := newPublicRouter(t, archive)
	expectCertificate(mock, 3, "certificates/3/gone", "deadbeef")

	w := get(r, "/certificates/3/document")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownload_ArchiveFailure(t *testing.T) {
	archive := &urlStorage{err: errors.New("credentials expired")}
	mock, r := newPublicRouter(t, archive)
	expectCertificate(mock, 3, "certificates/3/abc", "deadbeef")

	w := get(r, "/certificates/3/document")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "credentials")
}

func TestDownload_BadID(t *testing.T) {
	_, r := newPublicRouter(t, &urlStorage{})

	w := get(r, "/certificates/x/document")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
