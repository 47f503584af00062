// Package middleware provides the Gin middleware chain wrapped around every route.
//
// Order, as registered in internal/api/router.go:
//
//	Recovery → RequestID → Metrics → Logger → CORS → SecurityHeaders → RateLimit → AccessGate → Audit
//
// Security headers run first among the policy layers so they appear on rejected responses too.
// Rate limiting runs before the gate so brute-force attempts are throttled before any bcrypt work.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/apperrors"
	"github.com/Ecaloota/open-csip-aus-listing-api/internal/auth"
)

// AuthenticatedKey is the gin.Context key set to true once the gate has accepted a request.
const AuthenticatedKey = "authenticated"

// CredentialChecker is satisfied by *auth.Gate.
type CredentialChecker interface {
	Check(ctx context.Context, credential string) error
}

// credentialFromRequest reads the access key from header, falling back to an
// "Authorization: Bearer <key>" header.
func credentialFromRequest(c *gin.Context, header string) string {
	if key := c.GetHeader(header); key != "" {
		return key
	}
	if key, err := auth.ExtractAPIKeyFromHeader(c.GetHeader("Authorization")); err == nil {
		return key
	}
	return ""
}

// AccessGateMiddleware rejects requests whose credential does not match a stored access key.
func AccessGateMiddleware(gate CredentialChecker, header string) gin.HandlerFunc {
	if header == "" {
		header = auth.DefaultHeader
	}
	return func(c *gin.Context) {
		err := gate.Check(c.Request.Context(), credentialFromRequest(c, header))
		switch {
		case err == nil:
			c.Set(AuthenticatedKey, true)
			c.Next()
		case errors.Is(err, apperrors.ErrUnauthorized):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or missing access key",
			})
		default:
			slog.ErrorContext(c.Request.Context(), "access gate failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Authentication failed",
			})
		}
	}
}
