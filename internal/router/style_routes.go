package router

import (
	"github.com/liaosimin/pictora/internal/handler"
	"github.com/liaosimin/pictora/internal/middleware"

	"github.com/gin-gonic/gin"
)

func registerStyleRoutes(r *gin.Engine, h *handler.Handler, auth gin.HandlerFunc) {
	styles := r.Group("/styles")
	styles.GET("", h.ListStyles)
	styles.GET("/categories", h.ListStyleCategories)
	styles.GET("/recent", auth, h.ListRecentStyles)
	styles.POST("", auth, middleware.AdminCheck(), h.CreateStyle)
}
