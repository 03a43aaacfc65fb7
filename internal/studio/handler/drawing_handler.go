package handler

import (
	"errors"

	"github.com/deepaksahajwani/4th-dimension/internal/studio/entity"
	"github.com/deepaksahajwani/4th-dimension/internal/studio/repository"
	"github.com/deepaksahajwani/4th-dimension/internal/studio/service"
	"github.com/gin-gonic/gin"
)

// DrawingHandler 图纸处理器
type DrawingHandler struct {
	svc       *service.DrawingService
	notifySvc *service.NotifyService
}

// NewDrawingHandler 创建图纸处理器
func NewDrawingHandler(svc *service.DrawingService, notifySvc *service.NotifyService) *DrawingHandler {
	return &DrawingHandler{svc: svc, notifySvc: notifySvc}
}

// Create POST /projects/:id/drawings
func (h *DrawingHandler) Create(c *gin.Context) {
	projectID := c.Param("id")

	var req service.CreateDrawingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	drawing, err := h.svc.CreateDrawing(c.Request.Context(), projectID, GetUserID(c), &req)
	if err != nil {
		respondDrawingError(c, err, "创建图纸失败")
		return
	}
	Created(c, drawing)
}

// List GET /projects/:id/drawings
func (h *DrawingHandler) List(c *gin.Context) {
	projectID := c.Param("id")

	filter := repository.ListFilter{
		Category: c.Query("category"),
		Assignee: c.Query("assigned_to"),
	}
	if v := c.Query("issued"); v != "" {
		b := v == "true"
		filter.Issued = &b
	}
	if v := c.Query("pending_revision"); v != "" {
		b := v == "true"
		filter.Pending = &b
	}
	if v := c.Query("active"); v != "" {
		b := v == "true"
		filter.Active = &b
	}

	drawings, err := h.svc.ListDrawings(c.Request.Context(), projectID, filter)
	if err != nil {
		InternalError(c, "获取图纸列表失败: "+err.Error())
		return
	}

	// 响应带派生的生命周期状态，前端不用自己拼布尔位
	items := make([]gin.H, 0, len(drawings))
	for _, d := range drawings {
		items = append(items, drawingView(d))
	}
	Success(c, gin.H{"items": items})
}

// Get GET /drawings/:id
func (h *DrawingHandler) Get(c *gin.Context) {
	drawing, err := h.svc.GetDrawing(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDrawingError(c, err, "获取图纸失败")
		return
	}
	Success(c, drawingView(drawing))
}

// Update PUT /drawings/:id
func (h *DrawingHandler) Update(c *gin.Context) {
	var req service.UpdateDrawingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	drawing, err := h.svc.UpdateDrawing(c.Request.Context(), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		respondDrawingError(c, err, "更新图纸失败")
		return
	}
	Success(c, drawingView(drawing))
}

// Delete DELETE /drawings/:id
func (h *DrawingHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteDrawing(c.Request.Context(), c.Param("id")); err != nil {
		respondDrawingError(c, err, "删除图纸失败")
		return
	}
	Success(c, gin.H{"deleted": true})
}

// NotifyIssue POST /drawings/:id/notify-issue
// 跳过自动接收人解析，按调用方给定的名单扇出出图通知
func (h *DrawingHandler) NotifyIssue(c *gin.Context) {
	var req struct {
		RecipientIDs []string `json:"recipient_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	drawing, err := h.svc.GetDrawing(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDrawingError(c, err, "获取图纸失败")
		return
	}

	result := h.notifySvc.DispatchToRecipients(c.Request.Context(), drawing, entity.EventIssued, req.RecipientIDs)
	Success(c, result)
}

// AddComment POST /drawings/:id/comments
func (h *DrawingHandler) AddComment(c *gin.Context) {
	var req service.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	comment, err := h.svc.AddComment(c.Request.Context(), c.Param("id"), GetUserID(c), &req)
	if err != nil {
		respondDrawingError(c, err, "创建评论失败")
		return
	}
	Created(c, comment)
}

// ListComments GET /drawings/:id/comments
func (h *DrawingHandler) ListComments(c *gin.Context) {
	comments, err := h.svc.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		InternalError(c, "获取评论列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": comments})
}

// drawingView 图纸响应视图：实体字段 + 派生生命周期状态
func drawingView(d *entity.Drawing) gin.H {
	return gin.H{
		"drawing":   d,
		"lifecycle": d.Lifecycle(),
	}
}

// respondDrawingError 统一的错误→响应映射
func respondDrawingError(c *gin.Context, err error, prefix string) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		BadRequest(c, ve.Message)
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, prefix+": 资源不存在")
	case errors.Is(err, repository.ErrConflict):
		Conflict(c, "图纸已被其他人修改，请刷新后重试")
	default:
		InternalError(c, prefix+": "+err.Error())
	}
}
