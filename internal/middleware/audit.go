// audit.go records admin write operations as structured slog entries under the "audit" group.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuditEntry is what AuditMiddleware logs for one write request.
type AuditEntry struct {
	Action    string
	Entity    string
	ID        string
	Method    string
	Path      string
	Status    int
	IPAddress string
	RequestID string
}

// AuditMiddleware logs every completed POST, PUT, PATCH and DELETE. Failed writes are logged
// at warn level so rejected mutations stay visible. A nil logger uses slog.Default().
func AuditMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		entry := auditEntry(c)
		l := logger
		if l == nil {
			l = slog.Default()
		}

		level := slog.LevelInfo
		if entry.Status >= 400 {
			level = slog.LevelWarn
		}
		l.LogAttrs(c.Request.Context(), level, "audit",
			slog.Group("audit",
				slog.String("action", entry.Action),
				slog.String("entity", entry.Entity),
				slog.String("id", entry.ID),
				slog.String("method", entry.Method),
				slog.String("path", entry.Path),
				slog.Int("status", entry.Status),
				slog.String("ip", entry.IPAddress),
				slog.String("request_id", entry.RequestID),
			),
		)
	}
}

// auditEntry derives the entity and action from the matched route template, e.g.
// "/admin/listings/:id" with PUT gives entity "listings" and action "listings.updated".
func auditEntry(c *gin.Context) AuditEntry {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}

	entry := AuditEntry{
		ID:        c.Param("id"),
		Method:    c.Request.Method,
		Path:      c.Request.URL.Path,
		Status:    c.Writer.Status(),
		IPAddress: c.ClientIP(),
		RequestID: RequestID(c),
	}

	segments := strings.Split(strings.Trim(route, "/"), "/")
	if len(segments) > 0 && segments[0] == "admin" {
		segments = segments[1:]
	}
	if len(segments) > 0 {
		entry.Entity = segments[0]
	}

	verb := strings.ToLower(c.Request.Method)
	switch {
	case strings.HasSuffix(route, "/document"):
		verb = "document_uploaded"
	case c.Request.Method == http.MethodPost:
		verb = "created"
	case c.Request.Method == http.MethodPut, c.Request.Method == http.MethodPatch:
		verb = "updated"
	case c.Request.Method == http.MethodDelete:
		verb = "deleted"
	}
	entry.Action = entry.Entity + "." + verb
	return entry
}
