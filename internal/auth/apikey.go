package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	apiKeyHeader = "X-API-Key"
	apiKeyQuery  = "api_key"
)

// APIKeyMiddleware guards the operator API with a shared key taken from the
// X-API-Key header, or the api_key query parameter on requests that cannot
// carry headers. An empty key disables the check.
func APIKeyMiddleware(key string) gin.HandlerFunc {
	want := []byte(key)
	return func(c *gin.Context) {
		if len(want) == 0 {
			c.Next()
			return
		}

		got := fromHeaderOrQuery(c, apiKeyHeader, apiKeyQuery)
		switch {
		case got == "":
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
		case subtle.ConstantTimeCompare([]byte(got), want) != 1:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid API key"})
		default:
			c.Next()
		}
	}
}

// fromHeaderOrQuery prefers the header. Browsers cannot set headers on a
// WebSocket handshake, so the query parameter stands in for it.
func fromHeaderOrQuery(c *gin.Context, header, query string) string {
	if v := c.GetHeader(header); v != "" {
		return v
	}
	return c.Query(query)
}
