package controllers

import (
	"errors"
	"strconv"

	"github.com/duckieducksrgood/winchpoint/pkg/logging"
	"github.com/duckieducksrgood/winchpoint/pkg/resp"
	"github.com/duckieducksrgood/winchpoint/services"
	"github.com/duckieducksrgood/winchpoint/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fail writes the response for err. Internal errors are logged with the
// request logger and reported without detail.
func fail(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		resp.NotFound(c, "not found")
		return
	}
	var se *services.Error
	if !errors.As(err, &se) {
		logging.FromGin(c).Error("request_failed", zap.Error(err))
		_ = c.Error(err)
		resp.ServerError(c, errors.New("internal server error"))
		return
	}
	switch se.Kind {
	case services.KindValidation:
		resp.ValidationFailed(c, se.Msg, se.Fields)
	case services.KindNotFound:
		resp.NotFound(c, se.Msg)
	case services.KindUnauthorized:
		resp.Unauthorized(c, se.Msg)
	case services.KindForbidden:
		resp.Forbidden(c, se.Msg)
	default:
		resp.BadRequest(c, se.Msg)
	}
}

func actorOf(c *gin.Context) services.Actor {
	return services.Actor{UserID: utils.CurrentUserID(c), Role: utils.CurrentRole(c)}
}

func paramID(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		resp.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(n), true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		resp.BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}
