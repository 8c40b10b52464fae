package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ownerHeader = "X-Owner-ID"
	ownerQuery  = "owner"
	ownerKey    = "owner"
)

// OwnerMiddleware resolves the account the request acts for from the
// X-Owner-ID header or owner query parameter. Identity is established
// upstream; this only scopes data.
func OwnerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := fromHeaderOrQuery(c, ownerHeader, ownerQuery)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing owner id",
			})
			return
		}

		owner, err := uuid.Parse(raw)
		if err != nil || owner == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "invalid owner id",
			})
			return
		}

		c.Set(ownerKey, owner)
		c.Next()
	}
}

// Owner returns the owner set by OwnerMiddleware, or uuid.Nil.
func Owner(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ownerKey); ok {
		if owner, ok := v.(uuid.UUID); ok {
			return owner
		}
	}
	return uuid.Nil
}
