package handler

import (
	"github.com/Dave-code-creater/chiropractor-sub000/internal/apierr"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/middleware"
	"github.com/Dave-code-creater/chiropractor-sub000/internal/model"
	"github.com/gin-gonic/gin"
)

// respondError maps a service error onto the HTTP taxonomy. Internal causes
// are never leaked to the caller.
func respondError(c *gin.Context, err error) {
	e := apierr.From(err)
	c.JSON(e.HTTPStatus(), model.ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	})
}

// principal extracts the authenticated {user_id, role} the auth middleware
// injected.
func principal(c *gin.Context) (int64, model.Role) {
	return c.MustGet(middleware.CtxUserID).(int64), c.MustGet(middleware.CtxRole).(model.Role)
}
