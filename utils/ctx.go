package utils

import (
	"github.com/duckieducksrgood/winchpoint/entity"

	"github.com/gin-gonic/gin"
)

const (
	CtxUserID   = "userId"
	CtxUsername = "username"
	CtxRole     = "role"
)

func CurrentUserID(c *gin.Context) uint {
	v, _ := c.Get(CtxUserID)
	if id, ok := v.(uint); ok {
		return id
	}
	return 0
}

func CurrentUsername(c *gin.Context) string {
	return c.GetString(CtxUsername)
}

func CurrentRole(c *gin.Context) entity.Role {
	if v, ok := c.Get(CtxRole); ok {
		if r, ok := v.(entity.Role); ok {
			return r
		}
	}
	return ""
}
