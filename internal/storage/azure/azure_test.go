package azure

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/config"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/storage"
	"github.com/Ecaloota/open-csip-aus-listing-api/pkg/checksum"
)

type storedBlob struct {
	content     []byte
	metadata    map[string]string
	contentType string
}

type blobStore struct {
	mu    sync.Mutex
	blobs map[string]*storedBlob
}

// newTestStorage creates an AzureStorage pointed at an httptest server imitating enough of the
// Blob REST API for object CRUD.
func newTestStorage(t *testing.T) (*AzureStorage, *blobStore) {
	t.Helper()

	bs := &blobStore{blobs: map[string]*storedBlob{}}

	notFound := func(w http.ResponseWriter) {
		w.Header().Set("x-ms-error-code", "BlobNotFound")
		w.WriteHeader(http.StatusNotFound)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/")

		bs.mu.Lock()
		defer bs.mu.Unlock()

		switch r.Method {
		case http.MethodPut:
			data, _ := io.ReadAll(r.Body)
			meta := map[string]string{}
			for k, v := range r.Header {
				lk := strings.ToLower(k)
				if strings.HasPrefix(lk, "x-ms-meta-") && len(v) > 0 {
					meta[strings.TrimPrefix(lk, "x-ms-meta-")] = v[0]
				}
			}
			bs.blobs[key] = &storedBlob{
				content:     data,
				metadata:    meta,
				contentType: r.Header.Get("x-ms-blob-content-type"),
			}
			w.WriteHeader(http.StatusCreated)

		case http.MethodGet:
			b, ok := bs.blobs[key]
			if !ok {
				notFound(w)
				return
			}
			w.Header().Set("Content-Length", fmt.Sprintf("%d", len(b.content)))
			w.WriteHeader(http.StatusOK)
			w.Write(b.content)

		case http.MethodHead:
			b, ok := bs.blobs[key]
			if !ok {
				notFound(w)
				return
			}
			w.Header().Set("Content-Length", fmt.Sprintf("%d", len(b.content)))
			w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
			w.WriteHeader(http.StatusOK)

		case http.MethodDelete:
			if _, ok := bs.blobs[key]; !ok {
				notFound(w)
				return
			}
			delete(bs.blobs, key)
			w.WriteHeader(http.StatusAccepted)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)

	client, err := azblob.NewClientWithNoCredential(srv.URL, nil)
	if err != nil {
		t.Fatalf("failed to create azblob client: %v", err)
	}
	cred, err := azblob.NewSharedKeyCredential("account", base64.StdEncoding.EncodeToString([]byte("test-account-key")))
	if err != nil {
		t.Fatalf("failed to create shared key credential: %v", err)
	}

	return &AzureStorage{
		client:        client,
		credential:    cred,
		serviceURL:    "https://account.blob.core.windows.net/",
		containerName: "certs",
	}, bs
}

func TestUploadDownloadDeleteAndExists(t *testing.T) {
	s, bs := newTestStorage(t)
	ctx := context.Background()
	data := []byte("%PDF-1.7 certificate")

	res, err := s.Upload(ctx, "certificates/1/doc", bytes.NewReader(data), int64(len(data)), "application/pdf")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if res.Size != int64(len(data)) {
		t.Fatalf("unexpected size: got %d want %d", res.Size, len(data))
	}
	if res.Checksum != checksum.Of(data) {
		t.Fatalf("checksum = %q, want %q", res.Checksum, checksum.Of(data))
	}

	bs.mu.Lock()
	stored := bs.blobs["certs/certificates/1/doc"]
	bs.mu.Unlock()
	if stored == nil {
		t.Fatal("blob not stored under certs/certificates/1/doc")
	}
	if stored.metadata["sha256"] != res.Checksum {
		t.Errorf("sha256 metadata = %q, want %q", stored.metadata["sha256"], res.Checksum)
	}
	if stored.contentType != "application/pdf" {
		t.Errorf("content type = %q, want application/pdf", stored.contentType)
	}

	rc, err := s.Download(ctx, "certificates/1/doc")
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if !bytes.Equal(got, data) {
		t.Fatalf("download content mismatch: %q", string(got))
	}

	exists, err := s.Exists(ctx, "certificates/1/doc")
	if err != nil || !exists {
		t.Fatalf("Exists = %v, %v; want true, nil", exists, err)
	}

	if err := s.Delete(ctx, "certificates/1/doc"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	exists, err = s.Exists(ctx, "certificates/1/doc")
	if err != nil {
		t.Fatalf("Exists after delete returned error: %v", err)
	}
	if exists {
		t.Fatal("Exists = true after delete, want false")
	}
}

func TestDelete_MissingBlob(t *testing.T) {
	s, _ := newTestStorage(t)
	if err := s.Delete(context.Background(), "certificates/9/none"); err != nil {
		t.Errorf("Delete() error = %v, want nil", err)
	}
}

func TestDownload_MissingBlob(t *testing.T) {
	s, _ := newTestStorage(t)
	_, err := s.Download(context.Background(), "certificates/9/none")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Download() error = %v, want ErrNotFound", err)
	}
}

func TestGetURL(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	if _, err := s.Upload(ctx, "certificates/2/doc", strings.NewReader("x"), 1, ""); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	raw, err := s.GetURL(ctx, "certificates/2/doc", time.Hour)
	if err != nil {
		t.Fatalf("GetURL failed: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("GetURL returned unparseable URL %q: %v", raw, err)
	}
	if u.Host != "account.blob.core.windows.net" || u.Path != "/certs/certificates/2/doc" {
		t.Errorf("GetURL = %q, want blob URL for certs/certificates/2/doc", raw)
	}
	q := u.Query()
	if q.Get("sp") != "r" {
		t.Errorf("sp = %q, want r", q.Get("sp"))
	}
	if q.Get("sig") == "" {
		t.Error("SAS signature missing")
	}

	_, err = s.GetURL(ctx, "certificates/9/none", time.Hour)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetURL() error = %v, want ErrNotFound", err)
	}
}

// ---------------------------------------------------------------------------
// New() constructor validation (no cloud connection required)
// ---------------------------------------------------------------------------

func TestNew_Validation(t *testing.T) {
	validKey := base64.StdEncoding.EncodeToString([]byte("k"))
	tests := []struct {
		name string
		cfg  config.AzureStorageConfig
	}{
		{"missing account name", config.AzureStorageConfig{AccountKey: validKey, ContainerName: "certs"}},
		{"missing account key", config.AzureStorageConfig{AccountName: "acct", ContainerName: "certs"}},
		{"missing container", config.AzureStorageConfig{AccountName: "acct", AccountKey: validKey}},
		{"key not base64", config.AzureStorageConfig{AccountName: "acct", AccountKey: "not base64!", ContainerName: "certs"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if _, err := New(&cfg); err == nil {
				t.Error("New() = nil error, want error")
			}
		})
	}
}

func TestNew_Valid(t *testing.T) {
	s, err := New(&config.AzureStorageConfig{
		AccountName:   "acct",
		AccountKey:    base64.StdEncoding.EncodeToString([]byte("k")),
		ContainerName: "certs",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if s.serviceURL != "https://acct.blob.core.windows.net/" {
		t.Errorf("serviceURL = %q", s.serviceURL)
	}
}
