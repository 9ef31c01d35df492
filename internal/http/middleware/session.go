package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// SessionHeader carries the booking session id in both directions.
	SessionHeader = "X-Session-ID"
	sessionIDKey  = "session_id"
)

// Session assigns the booking session id. Ids that are not UUIDs are
// replaced by a new one.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := c.GetHeader(SessionHeader)
		if _, err := uuid.Parse(sid); err != nil {
			sid = uuid.NewString()
		}
		c.Set(sessionIDKey, sid)
		c.Writer.Header().Set(SessionHeader, sid)
		c.Next()
	}
}

// GetSessionID returns the session id assigned by Session.
func GetSessionID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(sessionIDKey)
}
