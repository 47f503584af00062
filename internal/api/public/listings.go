// Package public serves the read-only routes for API consumers: listings with their full
// graph, and certificate documents.
package public

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/apperrors"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/db/repositories"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/storage"
)

// RegisterRoutes mounts the public routes under group.
func RegisterRoutes(group *gin.RouterGroup, catalog *repositories.Catalog, archive storage.Storage, urlTTL time.Duration) {
	listings := NewListingHandlers(catalog)
	group.GET("/listings", listings.GetListingsHandler())

	documents := NewDocumentHandlers(catalog, archive, urlTTL)
	group.GET("/certificates/:id/document", documents.DownloadHandler())
}

// ListingHandlers serves listing graphs.
type ListingHandlers struct {
	catalog *repositories.Catalog
}

// NewListingHandlers creates a new ListingHandlers instance
func NewListingHandlers(catalog *repositories.Catalog) *ListingHandlers {
	return &ListingHandlers{catalog: catalog}
}

// @Summary      Get listings
// @Description  Returns one listing by id, or every listing matching the filters, each with its entity type, device classes, attribute values and certificates.
// @Tags         Public
// @Security     ApiKey
// @Produce      json
// @Param        id            query  int     false  "Listing id; filters are ignored when set"
// @Param        entity_type   query  string  false  "Entity type name, e.g. client or server"
// @Param        manufacturer  query  string  false  "Exact manufacturer"
// @Param        model         query  string  false  "Exact model"
// @Param        status        query  string  false  "active, suspended or expired"
// @Success      200  {array}   models.ListingDetail
// @Failure      400  {object}  map[string]interface{}  "Unsupported filter or malformed value"
// @Failure      404  {object}  map[string]interface{}  "Listing not found"
// @Router       /listings [get]
// GetListingsHandler serves GET /listings
func (h *ListingHandlers) GetListingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var q repositories.Query

		for key, values := range c.Request.URL.Query() {
			if len(values) == 0 {
				continue
			}
			switch key {
			case "id":
				id, err := strconv.ParseInt(values[0], 10, 64)
				if err != nil {
					respondError(c, apperrors.NewValidationError("id", "must be an integer"))
					return
				}
				q.ID = &id
			case "entity_type":
				// resolved below, once we know this is a list query
			default:
				if q.Filters == nil {
					q.Filters = make(map[string]string)
				}
				q.Filters[key] = values[0]
			}
		}

		if name := c.Query("entity_type"); q.ID == nil && name != "" {
			id, ok, err := h.catalog.EntityTypeID(ctx, name)
			if err != nil {
				respondError(c, err)
				return
			}
			if !ok {
				c.JSON(http.StatusOK, []any{})
				return
			}
			if q.Filters == nil {
				q.Filters = make(map[string]string)
			}
			q.Filters["entity_type_id"] = strconv.FormatInt(id, 10)
		}

		result, err := h.catalog.ListingGraph.Load(ctx, q)
		if err != nil {
			respondError(c, err)
			return
		}
		if result.ByID {
			if result.Item == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
				return
			}
			c.JSON(http.StatusOK, result.Item)
			return
		}
		c.JSON(http.StatusOK, result.Items)
	}
}

func respondError(c *gin.Context, err error) {
	var (
		validation  *apperrors.ValidationError
		unsupported *apperrors.UnsupportedFilterError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error(), "field": validation.Field})
	case errors.As(err, &unsupported):
		c.JSON(http.StatusBadRequest, gin.H{"error": unsupported.Error(), "field": unsupported.Field})
	default:
		slog.ErrorContext(c.Request.Context(), "public request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
