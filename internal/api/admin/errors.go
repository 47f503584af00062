package admin

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/apperrors"
)

// respondError maps a repository failure onto the HTTP response. Client-caused failures
// become 400 with the offending field or constraint; anything else is a 500 with a generic
// message and the cause logged.
func respondError(c *gin.Context, operation string, err error) {
	var (
		validation  *apperrors.ValidationError
		unsupported *apperrors.UnsupportedFilterError
		constraint  *apperrors.ConstraintViolationError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validation.Error(),
			"field": validation.Field,
		})
	case errors.As(err, &unsupported):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": unsupported.Error(),
			"field": unsupported.Field,
		})
	case errors.As(err, &constraint):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      constraint.Error(),
			"kind":       constraint.Kind,
			"constraint": constraint.Constraint,
			"fields":     constraint.Fields,
		})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		slog.ErrorContext(c.Request.Context(), "admin request failed",
			"operation", operation, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + operation})
	}
}
