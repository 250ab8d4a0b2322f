package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tener/recruit-core/internal/platform/ctxutil"
)

// AttachRequestContext stamps trace/request ids onto every request so
// error envelopes and logs correlate.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := strings.TrimSpace(c.GetHeader("X-Trace-Id"))
		if traceID == "" {
			traceID = uuid.NewString()
		}
		requestID := uuid.NewString()

		c.Set("trace_id", traceID)
		c.Set("request_id", requestID)
		ctx := ctxutil.WithTraceData(c.Request.Context(), &ctxutil.TraceData{TraceID: traceID, RequestID: requestID})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
