package controllers

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/Govind-619/Tutorix/middleware"
	"github.com/Govind-619/Tutorix/utils"
	"github.com/gin-gonic/gin"
)

// pathID parses a positive numeric path parameter, answering 400 when it is not one
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.BadRequest(c, fmt.Sprintf("Invalid %s", name), nil)
		return 0, false
	}
	return uint(id), true
}

// scope returns the coaching in the path and the authenticated caller
func scope(c *gin.Context) (coachingID, userID uint, ok bool) {
	userID, ok = middleware.CurrentUserID(c)
	if !ok {
		utils.Unauthorized(c, utils.ErrUnauthorized)
		return 0, 0, false
	}
	coachingID, ok = pathID(c, "coachingId")
	return coachingID, userID, ok
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.LogDebug("Rejected body on %s %s: %v", c.Request.Method, c.FullPath(), err)
		utils.RespondError(c, utils.BindingErrors(err))
		return false
	}
	return true
}

// bindOptionalJSON is bindJSON for endpoints whose body may be omitted
func bindOptionalJSON(c *gin.Context, dst interface{}) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	utils.LogDebug("Rejected body on %s %s: %v", c.Request.Method, c.FullPath(), err)
	utils.RespondError(c, utils.BindingErrors(err))
	return false
}
