package handler

import (
	"strconv"

	"github.com/deepaksahajwani/4th-dimension/internal/studio/service"
	"github.com/gin-gonic/gin"
)

// NotificationHandler 站内信处理器
type NotificationHandler struct {
	svc *service.NotifyService
}

// NewNotificationHandler 创建站内信处理器
func NewNotificationHandler(svc *service.NotifyService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List GET /notifications
func (h *NotificationHandler) List(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"
	limit := 0
	if v := c.Query("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	notifications, err := h.svc.ListNotifications(c.Request.Context(), GetUserID(c), unreadOnly, limit)
	if err != nil {
		InternalError(c, "获取通知列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": notifications})
}

// MarkRead PUT /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.svc.MarkNotificationRead(c.Request.Context(), GetUserID(c), c.Param("id")); err != nil {
		respondDrawingError(c, err, "标记已读失败")
		return
	}
	Success(c, gin.H{"read": true})
}
