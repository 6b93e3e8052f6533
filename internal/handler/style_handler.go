package handler

import (
	"net/http"
	"strconv"

	"github.com/liaosimin/pictora/internal/common/httpx"
	"github.com/liaosimin/pictora/internal/model"

	"github.com/gin-gonic/gin"
)

// ListStyles 按人气倒序返回风格列表，支持分类过滤与分页
func (h *Handler) ListStyles(c *gin.Context) {
	var categoryID *uint
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的分类ID"})
			return
		}
		v := uint(id)
		categoryID = &v
	}

	limit := intQuery(c, "limit", 10)
	offset := intQuery(c, "offset", 0)

	styles, err := h.service.Style.List(categoryID, limit, offset)
	if err != nil {
		httpx.WriteServiceError(c, err, "查询风格列表失败")
		return
	}

	c.JSON(http.StatusOK, styles)
}

// ListRecentStyles 返回当前用户最近任务用到的风格
func (h *Handler) ListRecentStyles(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "获取用户ID失败"})
		return
	}

	limit := intQuery(c, "limit", 10)

	styles, err := h.service.Style.Recent(uid, limit)
	if err != nil {
		httpx.WriteServiceError(c, err, "查询最近使用风格失败")
		return
	}

	c.JSON(http.StatusOK, styles)
}

// ListStyleCategories 返回风格分类列表
func (h *Handler) ListStyleCategories(c *gin.Context) {
	limit := intQuery(c, "limit", 10)
	offset := intQuery(c, "offset", 0)

	categories, err := h.service.Style.Categories(limit, offset)
	if err != nil {
		httpx.WriteServiceError(c, err, "查询风格分类失败")
		return
	}

	c.JSON(http.StatusOK, categories)
}

// CreateStyle 新增风格（仅管理员）
func (h *Handler) CreateStyle(c *gin.Context) {
	var req struct {
		Name           string `json:"name" binding:"required"`
		Description    string `json:"description"`
		PromptTemplate string `json:"prompt_template" binding:"required"`
		PreviewImage   string `json:"preview_image"`
		CategoryID     *uint  `json:"category_id"`
		Popular        int    `json:"popular"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误"})
		return
	}

	style := model.Style{
		Name:           req.Name,
		Description:    req.Description,
		PromptTemplate: req.PromptTemplate,
		PreviewImage:   req.PreviewImage,
		CategoryID:     req.CategoryID,
		Popular:        req.Popular,
	}
	if err := h.service.Style.Create(&style); err != nil {
		httpx.WriteServiceError(c, err, "创建风格失败")
		return
	}

	c.JSON(http.StatusCreated, style)
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
