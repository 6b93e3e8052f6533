package handler

import (
	"github.com/liaosimin/pictora/internal/service"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *service.AppService
}

func NewHandler(appService *service.AppService) *Handler {
	return &Handler{service: appService}
}

// currentUserID 取出认证中间件写入的用户 ID
func currentUserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get("id")
	if !exists {
		return 0, false
	}
	uid, ok := value.(uint)
	return uid, ok
}
