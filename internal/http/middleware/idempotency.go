package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"passagens/internal/cache"
	"passagens/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
)

// cachedResponse stores the response for idempotent requests.
type cachedResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
	Headers    http.Header     `json:"headers"`
}

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response when a mutating request repeats
// its Idempotency-Key. Keys are scoped to the caller's identity or session.
// A nil store disables replays.
func Idempotency(store cache.ResponseCacheInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.Next()
			return
		}
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut && c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}
		key := c.GetHeader(IdempotencyHeader)
		if key == "" || len(key) > 128 {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := idempotencyScope(c) + ":" + key

		data, ok, err := store.Get(ctx, cacheKey)
		if err != nil {
			// cache down: proceed without replay
			utils.LogError(GetRequestID(c), "http", "idempotency_get", err)
			c.Next()
			return
		}
		if ok {
			var cached cachedResponse
			if err := json.Unmarshal(data, &cached); err == nil {
				for k, v := range cached.Headers {
					for _, val := range v {
						c.Header(k, val)
					}
				}
				c.Header("Idempotent-Replayed", "true")
				c.Data(cached.StatusCode, "application/json", cached.Body)
				c.Abort()
				return
			}
		}

		w := &responseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = w

		c.Next()

		if status := c.Writer.Status(); status >= 200 && status < 500 && status != http.StatusConflict {
			response := cachedResponse{
				StatusCode: status,
				Body:       w.body.Bytes(),
				Headers:    extractResponseHeaders(c),
			}
			raw, err := json.Marshal(response)
			if err == nil {
				err = store.Set(ctx, cacheKey, raw, idempotencyTTL)
			}
			if err != nil {
				utils.LogError(GetRequestID(c), "http", "idempotency_set", err)
			}
		}
	}
}

func idempotencyScope(c *gin.Context) string {
	if identity := GetIdentity(c); identity != nil {
		return identity.Email
	}
	return GetSessionID(c)
}

// extractResponseHeaders extracts headers to cache.
func extractResponseHeaders(c *gin.Context) http.Header {
	headers := make(http.Header)
	if ct := c.Writer.Header().Get("Content-Type"); ct != "" {
		headers.Set("Content-Type", ct)
	}
	return headers
}
