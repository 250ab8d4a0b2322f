package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/http/response"
	"github.com/tener/recruit-core/internal/platform/logger"
	"github.com/tener/recruit-core/internal/repos"
)

const idempotencyHeader = "Idempotency-Key"

// IdempotencyMiddleware replays recorded responses for (route, key)
// pairs. A replay with the same payload hash returns the stored
// response byte-identically; a different payload hash conflicts.
// Requests without the header pass through untouched.
type IdempotencyMiddleware struct {
	log     *logger.Logger
	records repos.IdempotencyRecordRepo
}

func NewIdempotencyMiddleware(log *logger.Logger, records repos.IdempotencyRecordRepo) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{log: log.With("middleware", "IdempotencyMiddleware"), records: records}
}

type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (im *IdempotencyMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		sum := sha256.Sum256(body)
		payloadHash := hex.EncodeToString(sum[:])
		route := c.Request.Method + " " + c.FullPath()

		rec, err := im.records.Get(c.Request.Context(), nil, route, key)
		switch {
		case err == nil:
			if rec.PayloadHash != payloadHash {
				response.RespondError(c, http.StatusConflict, "idempotency_conflict",
					errors.New("idempotency key reused with a different payload"))
				c.Abort()
				return
			}
			c.Data(rec.StatusCode, "application/json", rec.Response)
			c.Abort()
			return
		case !errors.Is(err, gorm.ErrRecordNotFound):
			response.RespondError(c, http.StatusInternalServerError, "idempotency_lookup_failed", err)
			c.Abort()
			return
		}

		cw := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = cw
		c.Next()

		// Only successful executions are recorded; a failed attempt may
		// be retried with the same key.
		status := c.Writer.Status()
		if status >= 200 && status < 300 {
			if err := im.records.Create(c.Request.Context(), nil, &domain.IdempotencyRecord{
				Route:       route,
				Key:         key,
				PayloadHash: payloadHash,
				StatusCode:  status,
				Response:    datatypes.JSON(cw.body.Bytes()),
			}); err != nil {
				im.log.Warn("idempotency record write failed", "error", err, "route", route)
			}
		}
	}
}
