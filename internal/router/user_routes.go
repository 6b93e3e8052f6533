package router

import (
	"github.com/liaosimin/pictora/internal/handler"

	"github.com/gin-gonic/gin"
)

func registerUserRoutes(r *gin.Engine, h *handler.Handler, auth gin.HandlerFunc, authLimiter gin.HandlerFunc) {
	users := r.Group("/users")
	users.POST("/register", authLimiter, h.Register)
	users.POST("/login", authLimiter, h.Login)
	users.GET("/me", auth, h.GetSelfInfo)

	r.POST("/vip/subscribe", auth, h.SubscribeVip)
}
