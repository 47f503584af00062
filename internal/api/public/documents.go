package public

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/db/repositories"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/storage"
)

// DocumentHandlers serves archived certificate documents.
type DocumentHandlers struct {
	catalog *repositories.Catalog
	archive storage.Storage
	urlTTL  time.Duration
}

// NewDocumentHandlers creates a new DocumentHandlers instance. urlTTL bounds the lifetime of
// the URLs handed out by redirect.
func NewDocumentHandlers(catalog *repositories.Catalog, archive storage.Storage, urlTTL time.Duration) *DocumentHandlers {
	return &DocumentHandlers{
		catalog: catalog,
		archive: archive,
		urlTTL:  urlTTL,
	}
}

// @Summary      Download certificate document
// @Description  Redirects to a time-limited URL for the certificate's document, or streams it when the archive cannot issue one.
// @Tags         Public
// @Security     ApiKey
// @Param        id  path  int  true  "Certificate id"
// @Success      200  {file}    binary
// @Success      302  {string}  string  "Redirect to the document"
// @Failure      404  {object}  map[string]interface{}  "Certificate or document not found"
// @Router       /certificates/{id}/document [get]
// DownloadHandler serves GET /certificates/:id/document
func (h *DocumentHandlers) DownloadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid certificate id", "field": "id"})
			return
		}

		cert, err := h.catalog.Certificates.GetByID(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		if cert == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Certificate not found"})
			return
		}
		if !cert.HasDocument() {
			c.JSON(http.StatusNotFound, gin.H{"error": "Certificate has no document"})
			return
		}
		key := *cert.DocumentKey

		url, err := h.archive.GetURL(ctx, key, h.urlTTL)
		switch {
		case err == nil:
			c.Redirect(http.StatusFound, url)
			return
		case errors.Is(err, storage.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found in archive"})
			return
		case !errors.Is(err, storage.ErrNoDirectURL):
			slog.ErrorContext(ctx, "failed to get document URL", "certificate_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get document"})
			return
		}

		reader, err := h.archive.Download(ctx, key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Document not found in archive"})
				return
			}
			slog.ErrorContext(ctx, "failed to download document", "certificate_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get document"})
			return
		}
		defer reader.Close()

		headers := map[string]string{
			"Content-Disposition": fmt.Sprintf(`attachment; filename="certificate-%d"`, id),
		}
		if cert.DocumentChecksum != nil {
			headers["ETag"] = `"` + *cert.DocumentChecksum + `"`
		}
		c.DataFromReader(http.StatusOK, -1, "application/octet-stream", reader, headers)
	}
}
