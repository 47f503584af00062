// documents.go implements the certificate document upload endpoint.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/storage"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/telemetry"
)

// DocumentRecorder records which archived object holds a certificate's document.
// *repositories.Catalog implements it.
type DocumentRecorder interface {
	SetCertificateDocument(ctx context.Context, id int64, key, checksum string) (previous *string, found bool, err error)
}

// DocumentHandlers handles certificate document uploads.
type DocumentHandlers struct {
	recorder DocumentRecorder
	archive  storage.Storage
	maxBytes int64
}

// NewDocumentHandlers creates a new DocumentHandlers instance. Bodies larger than maxBytes are
// rejected with 413.
func NewDocumentHandlers(recorder DocumentRecorder, archive storage.Storage, maxBytes int64) *DocumentHandlers {
	return &DocumentHandlers{
		recorder: recorder,
		archive:  archive,
		maxBytes: maxBytes,
	}
}

// @Summary      Upload certificate document
// @Description  Stores the request body as the certificate's document, replacing any previous one.
// @Tags         Admin
// @Security     ApiKey
// @Accept       application/pdf
// @Produce      json
// @Param        id  path  int  true  "Certificate id"
// @Success      200  {object}  map[string]interface{}  "id, document_checksum, size_bytes"
// @Failure      400  {object}  map[string]interface{}  "Empty body or bad id"
// @Failure      404  {object}  map[string]interface{}  "Certificate not found"
// @Failure      413  {object}  map[string]interface{}  "Document too large"
// @Router       /admin/certificates/{id}/document [put]
// UploadHandler serves PUT /admin/certificates/:id/document
func (h *DocumentHandlers) UploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id, err := parseID(c.Param("id"))
		if err != nil {
			respondError(c, "upload certificate document", err)
			return
		}

		contentType := c.ContentType()
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		body := http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
		key := storage.DocumentKey(id)

		result, err := h.archive.Upload(ctx, key, body, c.Request.ContentLength, contentType)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{
					"error":     "Document too large",
					"max_bytes": h.maxBytes,
				})
				return
			}
			slog.ErrorContext(ctx, "failed to store certificate document", "certificate_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store document"})
			return
		}
		if result.Size == 0 {
			h.discard(ctx, key)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Document body is empty"})
			return
		}

		previous, found, err := h.recorder.SetCertificateDocument(ctx, id, key, result.Checksum)
		if err != nil {
			h.discard(ctx, key)
			slog.ErrorContext(ctx, "failed to record certificate document", "certificate_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record document"})
			return
		}
		if !found {
			h.discard(ctx, key)
			c.JSON(http.StatusNotFound, gin.H{"error": "certificate not found"})
			return
		}
		if previous != nil && *previous != "" && *previous != key {
			h.discard(ctx, *previous)
		}

		telemetry.CertificateDocumentBytes.Observe(float64(result.Size))
		c.JSON(http.StatusOK, gin.H{
			"id":                id,
			"document_checksum": result.Checksum,
			"size_bytes":        result.Size,
		})
	}
}

// discard removes an object that is no longer referenced. Failure leaves an orphan, which is
// logged and otherwise tolerated.
func (h *DocumentHandlers) discard(ctx context.Context, key string) {
	if err := h.archive.Delete(ctx, key); err != nil {
		slog.WarnContext(ctx, "failed to remove certificate document", "key", key, "error", err)
	}
}
