package handler

import (
	"github.com/deepaksahajwani/4th-dimension/internal/studio/service"
	"github.com/gin-gonic/gin"
)

// ProjectHandler 项目处理器
type ProjectHandler struct {
	svc *service.ProjectService
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(svc *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

// Create POST /projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req service.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	project, err := h.svc.CreateProject(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		respondDrawingError(c, err, "创建项目失败")
		return
	}
	Created(c, project)
}

// List GET /projects
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.svc.ListProjects(c.Request.Context(), GetUserID(c), c.Query("status"))
	if err != nil {
		InternalError(c, "获取项目列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": projects})
}

// Get GET /projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.svc.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDrawingError(c, err, "获取项目失败")
		return
	}
	Success(c, project)
}

// AddMember POST /projects/:id/members
func (h *ProjectHandler) AddMember(c *gin.Context) {
	var req service.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	member, err := h.svc.AddMember(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondDrawingError(c, err, "挂接项目成员失败")
		return
	}
	Created(c, member)
}

// GetParticipants GET /projects/:id/participants
func (h *ProjectHandler) GetParticipants(c *gin.Context) {
	participants, err := h.svc.GetParticipants(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDrawingError(c, err, "获取项目干系人失败")
		return
	}
	Success(c, participants)
}
