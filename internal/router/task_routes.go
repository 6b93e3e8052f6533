package router

import (
	"github.com/liaosimin/pictora/internal/handler"
	"github.com/liaosimin/pictora/internal/middleware"

	"github.com/gin-gonic/gin"
)

func registerTaskRoutes(r *gin.Engine, h *handler.Handler, auth gin.HandlerFunc, taskLimiter gin.HandlerFunc) {
	tasks := r.Group("/tasks")
	tasks.Use(auth)

	uploadBodyLimit := middleware.UploadBodyLimitMiddleware()

	tasks.POST("", uploadBodyLimit, taskLimiter, h.CreateTask)
	tasks.GET("", h.ListTasks)
	tasks.GET("/:id", h.GetTask)
	tasks.POST("/:id/retry", h.RetryTask)
}
