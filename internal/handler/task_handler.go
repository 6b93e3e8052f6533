package handler

import (
	"net/http"
	"os"
	"strconv"

	"github.com/liaosimin/pictora/internal/common/httpx"
	"github.com/liaosimin/pictora/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateTask 提交生成任务 (multipart: file + style_id + 可选 prompt)。
// 生成失败同样返回 200，任务对象里带 failed 状态和错误信息。
func (h *Handler) CreateTask(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "获取用户ID失败"})
		return
	}

	styleIDRaw := c.PostForm("style_id")
	styleID, err := strconv.ParseUint(styleIDRaw, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的风格ID"})
		return
	}
	customPrompt := c.PostForm("prompt")

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少上传文件"})
		return
	}

	inputPath, err := service.SaveUploadedImage(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.service.Task.Submit(c.Request.Context(), uid, uint(styleID), inputPath, customPrompt)
	if err != nil {
		// 提交被拒（风格不存在、积分不足）时不留存上传原图
		_ = os.Remove(inputPath)
		httpx.WriteServiceError(c, err, "创建任务失败")
		return
	}

	c.JSON(http.StatusOK, task)
}

// ListTasks 返回当前用户的任务，最近在前，可按状态过滤
func (h *Handler) ListTasks(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "获取用户ID失败"})
		return
	}

	tasks, err := h.service.Task.List(uid, c.Query("status"))
	if err != nil {
		httpx.WriteServiceError(c, err, "查询任务列表失败")
		return
	}

	c.JSON(http.StatusOK, tasks)
}

// GetTask 查询单个任务，只允许访问自己的任务
func (h *Handler) GetTask(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "获取用户ID失败"})
		return
	}

	taskID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的任务ID"})
		return
	}

	task, err := h.service.Task.Get(uid, uint(taskID))
	if err != nil {
		httpx.WriteServiceError(c, err, "查询任务失败")
		return
	}

	c.JSON(http.StatusOK, task)
}

// RetryTask 重试失败任务，按一次新的生成尝试计费
func (h *Handler) RetryTask(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "获取用户ID失败"})
		return
	}

	taskID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的任务ID"})
		return
	}

	task, err := h.service.Task.Retry(c.Request.Context(), uid, uint(taskID))
	if err != nil {
		httpx.WriteServiceError(c, err, "重试任务失败")
		return
	}

	c.JSON(http.StatusOK, task)
}
