// crud.go binds the generic repository of every entity kind to /admin/<path>. Each kind gets
// the same four routes; the schema registry decides which fields are accepted and filterable.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/apperrors"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/db/repositories"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/schema"
)

// Repository is the part of repositories.Repository[T] the handlers use.
type Repository[T any] interface {
	Entity() *schema.Entity
	Get(ctx context.Context, q repositories.Query) (repositories.Result[T], error)
	Create(ctx context.Context, payload map[string]any) (*T, error)
	Update(ctx context.Context, id int64, payload map[string]any) (*T, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// CRUDHandlers serves one entity kind.
type CRUDHandlers[T any] struct {
	repo  Repository[T]
	label string
}

// NewCRUDHandlers creates the handlers for repo's entity kind.
func NewCRUDHandlers[T any](repo Repository[T]) *CRUDHandlers[T] {
	return &CRUDHandlers[T]{
		repo:  repo,
		label: strings.ReplaceAll(string(repo.Entity().Kind), "_", " "),
	}
}

// RegisterCRUDRoutes mounts GET, POST, PUT /:id and DELETE /:id for repo under group.
func RegisterCRUDRoutes[T any](group *gin.RouterGroup, repo Repository[T]) {
	h := NewCRUDHandlers(repo)
	path := "/" + repo.Entity().Path
	group.GET(path, h.GetHandler())
	group.POST(path, h.CreateHandler())
	group.PUT(path+"/:id", h.UpdateHandler())
	group.DELETE(path+"/:id", h.DeleteHandler())
}

// RegisterCatalogRoutes mounts the CRUD routes of every entity kind in the catalog.
func RegisterCatalogRoutes(group *gin.RouterGroup, catalog *repositories.Catalog) {
	RegisterCRUDRoutes(group, catalog.AccessKeys)
	RegisterCRUDRoutes(group, catalog.EntityTypes)
	RegisterCRUDRoutes(group, catalog.DeviceClasses)
	RegisterCRUDRoutes(group, catalog.DeviceClassAttributes)
	RegisterCRUDRoutes(group, catalog.Listings)
	RegisterCRUDRoutes(group, catalog.ListingDeviceClasses)
	RegisterCRUDRoutes(group, catalog.ListingDeviceClassAttributes)
	RegisterCRUDRoutes(group, catalog.Certificates)
}

// @Summary      Get or list records
// @Description  With id, returns that record or 404. Without id, returns every record matching the filter query parameters.
// @Tags         Admin
// @Security     ApiKey
// @Produce      json
// @Param        id  query  int  false  "Record id; filters are ignored when set"
// @Success      200  {array}   object
// @Failure      400  {object}  map[string]interface{}  "Unsupported filter or malformed value"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Router       /admin/{path} [get]
// GetHandler serves GET /admin/<path>?id=&<filters>
func (h *CRUDHandlers[T]) GetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		q, err := parseQuery(c)
		if err != nil {
			respondError(c, "get "+h.label, err)
			return
		}

		result, err := h.repo.Get(c.Request.Context(), q)
		if err != nil {
			respondError(c, "get "+h.label, err)
			return
		}

		if result.ByID {
			if result.Item == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": h.label + " not found"})
				return
			}
			c.JSON(http.StatusOK, result.Item)
			return
		}
		c.JSON(http.StatusOK, result.Items)
	}
}

// CreateHandler serves POST /admin/<path>
func (h *CRUDHandlers[T]) CreateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := decodePayload(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		item, err := h.repo.Create(c.Request.Context(), payload)
		if err != nil {
			respondError(c, "create "+h.label, err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

// UpdateHandler serves PUT /admin/<path>/:id. Only the fields present in the body change.
func (h *CRUDHandlers[T]) UpdateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c.Param("id"))
		if err != nil {
			respondError(c, "update "+h.label, err)
			return
		}
		payload, err := decodePayload(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		item, err := h.repo.Update(c.Request.Context(), id, payload)
		if err != nil {
			respondError(c, "update "+h.label, err)
			return
		}
		if item == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": h.label + " not found"})
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

// DeleteHandler serves DELETE /admin/<path>/:id
func (h *CRUDHandlers[T]) DeleteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c.Param("id"))
		if err != nil {
			respondError(c, "delete "+h.label, err)
			return
		}

		deleted, err := h.repo.Delete(c.Request.Context(), id)
		if err != nil {
			respondError(c, "delete "+h.label, err)
			return
		}
		if !deleted {
			c.JSON(http.StatusNotFound, gin.H{"error": h.label + " not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}

// parseQuery splits the query string into the optional id and the filters. Repeated keys use
// the first value.
func parseQuery(c *gin.Context) (repositories.Query, error) {
	var q repositories.Query
	for key, values := range c.Request.URL.Query() {
		if len(values) == 0 {
			continue
		}
		if key == "id" {
			id, err := parseID(values[0])
			if err != nil {
				return q, err
			}
			q.ID = &id
			continue
		}
		if q.Filters == nil {
			q.Filters = make(map[string]string)
		}
		q.Filters[key] = values[0]
	}
	return q, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.NewValidationError("id", "must be an integer")
	}
	return id, nil
}

// decodePayload reads a JSON object body. Numbers stay json.Number so integer columns are not
// rounded through float64.
func decodePayload(body io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("request body must be a JSON object")
		}
		return nil, errors.New("invalid JSON body: " + err.Error())
	}
	if payload == nil {
		return nil, errors.New("request body must be a JSON object")
	}
	if dec.More() {
		return nil, errors.New("request body must contain a single JSON object")
	}
	return payload, nil
}
