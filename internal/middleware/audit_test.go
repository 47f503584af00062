package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newAuditRouter wires AuditMiddleware to a JSON logger writing into buf.
func newAuditRouter(buf *bytes.Buffer) *gin.Engine {
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.Use(AuditMiddleware(logger))
	admin := r.Group("/admin")
	admin.GET("/listings", func(c *gin.Context) { c.Status(http.StatusOK) })
	admin.POST("/listings", func(c *gin.Context) { c.Status(http.StatusCreated) })
	admin.PUT("/listings/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	admin.DELETE("/entity-types/:id", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	admin.PUT("/certificates/:id/document", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

type auditRecord struct {
	Level string `json:"level"`
	Msg   string `json:"msg"`
	Audit struct {
		Action    string `json:"action"`
		Entity    string `json:"entity"`
		ID        string `json:"id"`
		Method    string `json:"method"`
		Path      string `json:"path"`
		Status    int    `json:"status"`
		RequestID string `json:"request_id"`
	} `json:"audit"`
}

func decodeAudit(t *testing.T, buf *bytes.Buffer) []auditRecord {
	t.Helper()
	var out []auditRecord
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec auditRecord
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestAuditMiddleware_LogsWrites(t *testing.T) {
	tests := []struct {
		method     string
		path       string
		wantAction string
		wantEntity string
		wantID     string
		wantLevel  string
	}{
		{http.MethodPost, "/admin/listings", "listings.created", "listings", "", "INFO"},
		{http.MethodPut, "/admin/listings/7", "listings.updated", "listings", "7", "INFO"},
		{http.MethodDelete, "/admin/entity-types/3", "entity-types.deleted", "entity-types", "3", "WARN"},
		{http.MethodPut, "/admin/certificates/9/document", "certificates.document_uploaded", "certificates", "9", "INFO"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var buf bytes.Buffer
			r := newAuditRouter(&buf)

			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set(RequestIDHeader, "req-123")
			r.ServeHTTP(httptest.NewRecorder(), req)

			records := decodeAudit(t, &buf)
			require.Len(t, records, 1)
			rec := records[0]
			assert.Equal(t, "audit", rec.Msg)
			assert.Equal(t, tt.wantLevel, rec.Level)
			assert.Equal(t, tt.wantAction, rec.Audit.Action)
			assert.Equal(t, tt.wantEntity, rec.Audit.Entity)
			assert.Equal(t, tt.wantID, rec.Audit.ID)
			assert.Equal(t, tt.method, rec.Audit.Method)
			assert.Equal(t, tt.path, rec.Audit.Path)
			assert.Equal(t, "req-123", rec.Audit.RequestID)
		})
	}
}

func TestAuditMiddleware_SkipsReads(t *testing.T) {
	var buf bytes.Buffer
	r := newAuditRouter(&buf)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/listings", nil))

	assert.Empty(t, buf.String())
}
