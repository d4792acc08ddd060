package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"resume-sync/internal/shared/server/respond"
	"resume-sync/internal/shared/telemetry"
)

// Recovery recovers from panics and returns a standardized error response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				telemetry.Error("http.panic_recovered", map[string]any{
					"request_id": RequestIDFromContext(c),
					"error":      fmt.Sprintf("%v", rec),
					"stack":      string(debug.Stack()),
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
				})
				// A panic inside an SSE stream leaves headers already
				// written; in that case there is nothing left to send.
				if !c.Writer.Written() {
					respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected server error", nil)
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}
