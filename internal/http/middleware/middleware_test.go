package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"passagens/internal/domain/models"
	"passagens/internal/mocks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func fakeParser(token string) (*models.Identity, error) {
	if token == "good" {
		return &models.Identity{Email: "ana@example.com", Name: "Ana"}, nil
	}
	return nil, errors.New("bad token")
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get("X-Request-ID")
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
}

func TestSessionReplacesInvalidIDs(t *testing.T) {
	r := gin.New()
	r.Use(Session())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetSessionID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, "../../etc/passwd")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	_, err := uuid.Parse(w.Body.String())
	require.NoError(t, err)
	assert.Equal(t, w.Body.String(), w.Header().Get(SessionHeader))

	id := uuid.NewString()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, id)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, id, w.Body.String())
}

func authRouter() *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), AuthOptional(fakeParser))
	r.GET("/open", func(c *gin.Context) {
		email := ""
		if id := GetIdentity(c); id != nil {
			email = id.Email
		}
		c.String(http.StatusOK, email)
	})
	r.GET("/closed", RequireAuth(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestAuthOptional(t *testing.T) {
	r := authRouter()
	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"anonymous", "", http.StatusOK, ""},
		{"valid token", "Bearer good", http.StatusOK, "ana@example.com"},
		{"invalid token", "Bearer nope", http.StatusUnauthorized, "not_authenticated"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "not_authenticated"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/open", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.body)
		})
	}
}

func TestRequireAuth(t *testing.T) {
	r := authRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/closed", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/closed", nil)
	req.Header.Set("Authorization", "Bearer good")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func idempotencyRouter(calls *int, status int) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Session(), AuthOptional(fakeParser))
	r.POST("/pay", Idempotency(mocks.NewResponseCache()), func(c *gin.Context) {
		*calls++
		c.JSON(status, gin.H{"call": *calls})
	})
	return r
}

func postPay(r *gin.Engine, key, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/pay", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotencyReplaysResponse(t *testing.T) {
	calls := 0
	r := idempotencyRouter(&calls, http.StatusCreated)

	first := postPay(r, "k1", "good")
	second := postPay(r, "k1", "good")

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))

	postPay(r, "k2", "good")
	postPay(r, "", "good")
	assert.Equal(t, 3, calls)
}

func TestIdempotencySkipsConflicts(t *testing.T) {
	calls := 0
	r := idempotencyRouter(&calls, http.StatusConflict)

	postPay(r, "k1", "good")
	postPay(r, "k1", "good")
	assert.Equal(t, 2, calls)
}

func TestIdempotencyWithoutStorePassesThrough(t *testing.T) {
	calls := 0
	r := gin.New()
	r.POST("/pay", Idempotency(nil), func(c *gin.Context) {
		calls++
		c.Status(http.StatusCreated)
	})
	postPay(r, "k1", "")
	postPay(r, "k1", "")
	assert.Equal(t, 2, calls)
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://passagens.example.com"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://passagens.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", SessionHeader)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "https://passagens.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, strings.ToLower(w.Header().Get("Access-Control-Allow-Headers")), strings.ToLower(SessionHeader))
}
