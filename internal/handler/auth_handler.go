package handler

import (
	"net/http"

	"github.com/liaosimin/pictora/internal/common/httpx"

	"github.com/gin-gonic/gin"
)

// Register 用户名密码注册
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误"})
		return
	}

	userID, err := h.service.Auth.Register(req.Username, req.Password, req.Email)
	if err != nil {
		httpx.WriteServiceError(c, err, "注册失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "注册成功",
		"user_id": userID,
	})
}

// Login 微信小程序登录：用 code 换取会话 Token
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Code string `json:"code"`
	}
	_ = c.ShouldBindJSON(&req)
	if req.Code == "" {
		// 兼容以查询参数传递 code 的调用方
		req.Code = c.Query("code")
	}

	token, isNewUser, err := h.service.Auth.LoginWithCode(c.Request.Context(), req.Code)
	if err != nil {
		httpx.WriteServiceError(c, err, "登录失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"is_new_user":  isNewUser,
	})
}
