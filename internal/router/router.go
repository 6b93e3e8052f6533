package router

import (
	"net/http"

	"github.com/liaosimin/pictora/internal/config"
	"github.com/liaosimin/pictora/internal/handler"
	"github.com/liaosimin/pictora/internal/middleware"
	"github.com/liaosimin/pictora/internal/repository"

	"github.com/gin-gonic/gin"
)

type Router struct {
	handler *handler.Handler
	users   repository.UserStore
}

func NewRouter(h *handler.Handler, users repository.UserStore) *Router {
	return &Router{handler: h, users: users}
}

func (rt *Router) Init(r *gin.Engine) {
	limitCfg := config.Get().Limit
	authLimiter := middleware.RateLimitMiddleware(limitCfg.AuthRPS, limitCfg.AuthBurst)
	taskLimiter := middleware.RateLimitMiddleware(limitCfg.TaskRPS, limitCfg.TaskBurst)
	auth := middleware.JWTAuth(rt.users)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "欢迎使用Pictora AI图片生成API"})
	})

	registerUserRoutes(r, rt.handler, auth, authLimiter)
	registerStyleRoutes(r, rt.handler, auth)
	registerTaskRoutes(r, rt.handler, auth, taskLimiter)
}
