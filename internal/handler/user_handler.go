package handler

import (
	"fmt"
	"net/http"

	"github.com/liaosimin/pictora/internal/common/httpx"

	"github.com/gin-gonic/gin"
)

// GetSelfInfo 获取当前用户信息（含积分）
func (h *Handler) GetSelfInfo(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "获取用户ID失败"})
		return
	}

	profile, err := h.service.User.Profile(uid)
	if err != nil {
		httpx.WriteServiceError(c, err, "获取用户信息失败")
		return
	}

	c.JSON(http.StatusOK, profile)
}

// SubscribeVip 订阅 VIP（支付流程省略，直接置 VIP 并赠送积分）
func (h *Handler) SubscribeVip(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "获取用户ID失败"})
		return
	}

	bonus, err := h.service.User.SubscribeVip(uid)
	if err != nil {
		httpx.WriteServiceError(c, err, "VIP 订阅失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("VIP订阅成功，已增加%d积分", bonus),
	})
}
