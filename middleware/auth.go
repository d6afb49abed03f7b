// Package middleware holds the gin middleware shared by all routes.
package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"pos-backoffice/apperr"
	"pos-backoffice/models"
)

// TokenCookie is the cookie set on login.
const TokenCookie = "token"

const adminKey = "admin"

// Authenticator resolves a session token to its admin.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Admin, error)
}

// RequireAuth accepts a bearer token or the session cookie and stores the
// verified admin on the gin context.
func RequireAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, err := a.Authenticate(c.Request.Context(), tokenFrom(c))
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Set(adminKey, admin)
		c.Next()
	}
}

func tokenFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil {
		return cookie
	}
	return ""
}

// RequireRole lets through admins holding one of roles. It must run after
// RequireAuth.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin := CurrentAdmin(c)
		if admin == nil {
			AbortWithError(c, apperr.Unauthorized("Not authorized"))
			return
		}
		for _, r := range roles {
			if admin.Role == r {
				c.Next()
				return
			}
		}
		AbortWithError(c, apperr.Forbidden("Role "+string(admin.Role)+" is not allowed to access this resource"))
	}
}

// CurrentAdmin returns the admin stored by RequireAuth, or nil.
func CurrentAdmin(c *gin.Context) *models.Admin {
	v, ok := c.Get(adminKey)
	if !ok {
		return nil
	}
	admin, _ := v.(*models.Admin)
	return admin
}
