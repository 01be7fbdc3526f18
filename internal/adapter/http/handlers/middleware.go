package handlers

import (
	"net/http"
	"strings"

	"vendomat/pkg"

	"github.com/gin-gonic/gin"
)

// ContextUserIDKey holds the authenticated user ID in the gin context.
const ContextUserIDKey = "uid"

// UserIDHeader is set by the authentication layer in front of this service.
// Credential checks themselves are out of scope here.
const UserIDHeader = "X-User-ID"

// RequireUser rejects requests that arrive without an authenticated user
// identity.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if uid == "" {
			appErr := pkg.NewDomainErrorSimple("UNAUTHENTICATED", "Missing user identity", http.StatusUnauthorized)
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToHTTPError())
			return
		}
		c.Set(ContextUserIDKey, uid)
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(ContextUserIDKey)
}
