package middleware

import (
	"net/http"
	"strings"

	"passagens/internal/domain/models"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// TokenParser validates a bearer token.
type TokenParser func(token string) (*models.Identity, error)

// AuthOptional resolves the bearer token when one is sent. Requests without
// a token pass through anonymously; a bad token is rejected.
func AuthOptional(parse TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			c.Next()
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			abortUnauthenticated(c, "cabeçalho Authorization inválido")
			return
		}
		identity, err := parse(strings.TrimSpace(token))
		if err != nil {
			abortUnauthenticated(c, "token inválido ou expirado")
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireAuth rejects requests without a resolved identity.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetIdentity(c) == nil {
			abortUnauthenticated(c, "identificação necessária")
			return
		}
		c.Next()
	}
}

// GetIdentity returns the identity resolved by AuthOptional, or nil.
func GetIdentity(c *gin.Context) *models.Identity {
	if c == nil {
		return nil
	}
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(*models.Identity); ok {
			return identity
		}
	}
	return nil
}

func abortUnauthenticated(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":      message,
		"code":       "not_authenticated",
		"message":    message,
		"request_id": GetRequestID(c),
	})
}
