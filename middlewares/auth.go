package middlewares

import (
	"net/http"
	"strings"

	"github.com/duckieducksrgood/winchpoint/entity"
	"github.com/duckieducksrgood/winchpoint/pkg/logging"
	"github.com/duckieducksrgood/winchpoint/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Cookie names used by the auth controller as well.
const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// AuthMiddleware validates the access token and, when roles are given,
// requires the caller to hold one of them.
func AuthMiddleware(secret string, roles ...entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerOrCookie(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing or invalid token"})
			return
		}
		claims, err := utils.ParseToken(tokenStr, utils.TokenAccess, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid token"})
			return
		}

		c.Set(utils.CtxUserID, claims.UserID)
		c.Set(utils.CtxUsername, claims.Username)
		c.Set(utils.CtxRole, claims.Role)
		logging.Annotate(c, zap.Uint("user_id", claims.UserID), zap.String("role", string(claims.Role)))

		if len(roles) > 0 && !hasRole(claims.Role, roles) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"ok": false, "error": "forbidden"})
			return
		}
		c.Next()
	}
}

// WSAuthMiddleware also accepts ?token= since browsers cannot set headers
// on a websocket handshake.
func WSAuthMiddleware(secret string, roles ...entity.Role) gin.HandlerFunc {
	inner := AuthMiddleware(secret, roles...)
	return func(c *gin.Context) {
		if t := c.Query("token"); t != "" && c.GetHeader("Authorization") == "" {
			c.Request.Header.Set("Authorization", "Bearer "+t)
		}
		inner(c)
	}
}

func bearerOrCookie(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if v, err := c.Cookie(AccessCookie); err == nil {
		return v
	}
	return ""
}

func hasRole(role entity.Role, allowed []entity.Role) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}
