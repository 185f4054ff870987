// app/idempotentmw.go
package app

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"Gin_gorm_library_borrow/idempotency"

	"github.com/gin-gonic/gin"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"

	maxIdempotencyKey = 255
	maxIdempotentBody = 1 << 20
)

type recordingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Idempotent replays the stored response when a request repeats an
// Idempotency-Key within the TTL. Requests without the header, or a nil
// store, pass straight through. 5xx responses are not stored.
func Idempotent(store *idempotency.Store, scope string, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		k := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
		if store == nil || k == "" {
			c.Next()
			return
		}
		if len(k) > maxIdempotencyKey {
			Fail(c, http.StatusBadRequest, "Idempotency-Key too long", "invalid idempotency key")
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxIdempotentBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				Fail(c, http.StatusRequestEntityTooLarge, "Request body too large", "body exceeds 1 MiB")
				return
			}
			Fail(c, http.StatusBadRequest, "Unreadable request body", err.Error())
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		fp := fingerprint(body)

		ctx := c.Request.Context()
		rec, err := store.Begin(ctx, scope, k, fp)
		switch {
		case errors.Is(err, idempotency.ErrInProgress):
			Fail(c, http.StatusConflict, "Request already in progress", "idempotency key in use")
			return
		case errors.Is(err, idempotency.ErrMismatch):
			Fail(c, http.StatusUnprocessableEntity, "Idempotency-Key reused with a different body", "idempotency key mismatch")
			return
		case err != nil:
			// Redis 不可用时不阻塞请求
			log.Warn("idempotency store unavailable", "err", err)
			c.Next()
			return
		case rec != nil:
			c.Header(ReplayedHeader, "true")
			c.Data(rec.Status, rec.ContentType, rec.Body)
			c.Abort()
			return
		}

		w := &recordingWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		bg := context.WithoutCancel(ctx)
		status := w.Status()
		if status >= http.StatusInternalServerError {
			if err := store.Release(bg, scope, k); err != nil {
				log.Warn("idempotency release failed", "key", k, "err", err)
			}
			return
		}
		if err := store.Complete(bg, scope, k, idempotency.Record{
			Fingerprint: fp,
			Status:      status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		}); err != nil {
			log.Warn("idempotency complete failed", "key", k, "err", err)
		}
	}
}
