package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unitutor-api/internal/models"
)

// AuditResourceKey lets a handler name the audited resource when it is not the :id parameter.
const AuditResourceKey = "audit_resource_id"

type auditRecorder interface {
	Record(ctx context.Context, actor models.Actor, action, resource, resourceID string, payload interface{})
}

// Audit records an access entry after successful requests. It covers reads the
// services do not audit themselves, such as export downloads.
func Audit(recorder auditRecorder, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if recorder == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		actor := models.ActorFromClaims(Claims(c))
		actor.IP = c.ClientIP()
		actor.UserAgent = c.GetHeader("User-Agent")

		resourceID := c.Param("id")
		if value := c.GetString(AuditResourceKey); value != "" {
			resourceID = value
		}

		recorder.Record(c.Request.Context(), actor, action, resource, resourceID, map[string]interface{}{
			"path":       c.FullPath(),
			"method":     c.Request.Method,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
		})
	}
}
