package handler

import (
	"time"

	"github.com/deepaksahajwani/4th-dimension/internal/studio/service"
	"github.com/gin-gonic/gin"
)

// UploadHandler 图纸文件上传处理器
type UploadHandler struct {
	svc *service.UploadService
}

// NewUploadHandler 创建上传处理器
func NewUploadHandler(svc *service.UploadService) *UploadHandler {
	return &UploadHandler{svc: svc}
}

// Upload POST /uploads
// 上传成功后拿到的URL填进图纸的file_url字段送审
func (h *UploadHandler) Upload(c *gin.Context) {
	projectID := c.PostForm("project_id")
	if projectID == "" {
		BadRequest(c, "project_id不能为空")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "无法解析上传文件: "+err.Error())
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		InternalError(c, "读取上传文件失败: "+err.Error())
		return
	}
	defer src.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	uploaded, err := h.svc.Upload(c.Request.Context(), projectID, src, fileHeader.Filename, fileHeader.Size, contentType)
	if err != nil {
		InternalError(c, "上传文件失败: "+err.Error())
		return
	}
	Created(c, uploaded)
}

// PresignedURL GET /uploads/presigned?object=...
func (h *UploadHandler) PresignedURL(c *gin.Context) {
	objectName := c.Query("object")
	if objectName == "" {
		BadRequest(c, "object不能为空")
		return
	}

	url, err := h.svc.PresignedURL(c.Request.Context(), objectName, 15*time.Minute)
	if err != nil {
		InternalError(c, "生成下载链接失败: "+err.Error())
		return
	}
	Success(c, gin.H{"url": url})
}
