package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-fixture-users/pkg/helpers"
	"github.com/oksasatya/go-ddd-fixture-users/pkg/response"
)

// Context keys set by Auth.
const (
	CtxUserIDKey  = "userID"
	CtxUserName   = "userName"
	CtxUserEmail  = "userEmail"
	CtxUserAdmin  = "userAdmin"
	CtxSessionKey = "sessionID"
)

// Auth validates the access token cookie and ensures the session it names is
// still live in Redis. When rdb is nil only the token is checked and the admin
// flag comes from its claims.
func Auth(rdb *redis.Client, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(helpers.AccessCookie)
		if err != nil || token == "" {
			response.Error[any](c, http.StatusUnauthorized, "missing access token", nil)
			c.Abort()
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "invalid access token", err.Error())
			c.Abort()
			return
		}

		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxSessionKey, claims.SessionID)
		c.Set(CtxUserAdmin, claims.Admin)
		if rdb == nil {
			c.Next()
			return
		}

		data, err := rdb.HGetAll(c.Request.Context(), helpers.SessionKey(claims.UserID)).Result()
		if err != nil || len(data) == 0 || data["sid"] != claims.SessionID {
			response.Error[any](c, http.StatusUnauthorized, "session not found", nil)
			c.Abort()
			return
		}
		admin, _ := strconv.ParseBool(data["is_admin"])
		c.Set(CtxUserName, data["name"])
		c.Set(CtxUserEmail, data["email"])
		c.Set(CtxUserAdmin, admin)
		c.Next()
	}
}

// AdminLookup reports whether the stored user currently holds the admin role.
type AdminLookup func(ctx context.Context, userID int64) (bool, error)

// RequireAdmin rejects non-admins. It must run after Auth. With a lookup the
// stored record decides instead of the token or session, so a revoked role
// takes effect immediately.
func RequireAdmin(lookup AdminLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin := c.GetBool(CtxUserAdmin)
		if lookup != nil {
			ok, err := lookup(c.Request.Context(), CurrentUserID(c))
			admin = err == nil && ok
			c.Set(CtxUserAdmin, admin)
		}
		if !admin {
			response.Error[any](c, http.StatusForbidden, "admin only", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUserID returns the authenticated user id, or 0.
func CurrentUserID(c *gin.Context) int64 {
	return c.GetInt64(CtxUserIDKey)
}
