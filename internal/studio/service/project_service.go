package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/deepaksahajwani/4th-dimension/internal/shared/mailer"
	"github.com/deepaksahajwani/4th-dimension/internal/studio/entity"
	"github.com/deepaksahajwani/4th-dimension/internal/studio/repository"
	"github.com/google/uuid"
)

// ProjectService 项目服务
type ProjectService struct {
	projectRepo *repository.ProjectRepository
	drawingRepo *repository.DrawingRepository
	userRepo    *repository.UserRepository
	mail        *mailer.Mailer
}

// NewProjectService 创建项目服务；mail可为nil（未配置SMTP时不发摘要邮件）
func NewProjectService(projectRepo *repository.ProjectRepository, drawingRepo *repository.DrawingRepository, userRepo *repository.UserRepository, mail *mailer.Mailer) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		drawingRepo: drawingRepo,
		userRepo:    userRepo,
		mail:        mail,
	}
}

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Name         string  `json:"name" binding:"required"`
	ProjectType  string  `json:"project_type" binding:"required"`
	Address      string  `json:"address"`
	TeamLeaderID string  `json:"team_leader_id"`
	ClientID     string  `json:"client_id"`
	StartDate    *string `json:"start_date"`
	DueDate      *string `json:"due_date"`
	// 为true时跳过图纸模板预建，从空白项目开始
	SkipTemplate bool `json:"skip_template"`
}

// AddMemberRequest 挂接项目成员请求
type AddMemberRequest struct {
	UserID         string `json:"user_id" binding:"required"`
	Role           string `json:"role" binding:"required"`
	ContractorType string `json:"contractor_type"`
}

// CreateProject 创建项目并按项目类型模板预建图纸流水线
// 每个类别内按模板顺序编排序号，首张激活、其余锁定待前序出图解锁
func (s *ProjectService) CreateProject(ctx context.Context, ownerID string, req *CreateProjectRequest) (*entity.Project, error) {
	template, ok := entity.ProjectDrawingTemplates[req.ProjectType]
	if !ok {
		return nil, &ValidationError{Message: fmt.Sprintf("未知的项目类型: %q", req.ProjectType)}
	}

	project := &entity.Project{
		ID:           generateID(),
		Code:         generateProjectCode(),
		Name:         req.Name,
		ProjectType:  req.ProjectType,
		Status:       entity.ProjectStatusActive,
		Address:      req.Address,
		OwnerID:      ownerID,
		TeamLeaderID: req.TeamLeaderID,
		ClientID:     req.ClientID,
		CreatedBy:    ownerID,
	}
	if req.StartDate != nil && *req.StartDate != "" {
		t, err := parseDate("start_date", *req.StartDate)
		if err != nil {
			return nil, err
		}
		project.StartDate = t
	}
	if req.DueDate != nil && *req.DueDate != "" {
		t, err := parseDate("due_date", *req.DueDate)
		if err != nil {
			return nil, err
		}
		project.DueDate = t
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("创建项目失败: %w", err)
	}

	seeded := 0
	if !req.SkipTemplate {
		drawings := seedDrawings(project.ID, ownerID, template)
		if err := s.drawingRepo.CreateBatch(ctx, drawings); err != nil {
			return nil, fmt.Errorf("预建图纸失败: %w", err)
		}
		seeded = len(drawings)
	}

	// 异步发项目摘要邮件（不阻断主流程）
	if s.mail != nil {
		go s.sendProjectSummary(context.Background(), project, seeded)
	}
	return project, nil
}

// sendProjectSummary 项目创建摘要邮件，发给业主和客户
func (s *ProjectService) sendProjectSummary(ctx context.Context, project *entity.Project, seeded int) {
	ids := []string{project.OwnerID}
	if project.ClientID != "" {
		ids = append(ids, project.ClientID)
	}
	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		log.Printf("[ProjectService] 查找摘要收件人失败 (project=%s): %v", project.ID, err)
		return
	}

	var to []string
	for _, u := range users {
		if u.Email != "" {
			to = append(to, u.Email)
		}
	}
	if len(to) == 0 {
		return
	}

	subject := fmt.Sprintf("新项目已创建: %s (%s)", project.Name, project.Code)
	body := fmt.Sprintf("项目 %s 已创建。\n\n编号: %s\n类型: %s\n预建图纸: %d 张\n",
		project.Name, project.Code, project.ProjectType, seeded)
	if err := s.mail.Send(to, subject, body); err != nil {
		log.Printf("[ProjectService] 发送项目摘要邮件失败 (project=%s): %v", project.ID, err)
	}
}

// seedDrawings 把模板展开为图纸记录，逐类别编号
func seedDrawings(projectID, ownerID string, template []entity.DrawingSeed) []*entity.Drawing {
	nextSeq := map[string]int{}
	drawings := make([]*entity.Drawing, 0, len(template))
	for _, seed := range template {
		nextSeq[seed.Category]++
		seq := nextSeq[seed.Category]
		drawings = append(drawings, &entity.Drawing{
			ID:             generateID(),
			ProjectID:      projectID,
			Category:       seed.Category,
			Name:           seed.Name,
			SequenceNumber: intPtr(seq),
			IsActive:       seq == 1,
			CreatedBy:      ownerID,
		})
	}
	return drawings
}

func intPtr(v int) *int {
	return &v
}

// generateProjectCode 项目编号：4D-<年月>-<随机段>
func generateProjectCode() string {
	return fmt.Sprintf("4D-%s-%s", time.Now().Format("200601"), uuid.New().String()[:6])
}

// GetProject 查询项目详情
func (s *ProjectService) GetProject(ctx context.Context, id string) (*entity.Project, error) {
	return s.projectRepo.FindByID(ctx, id)
}

// ListProjects 列出用户可见的项目
func (s *ProjectService) ListProjects(ctx context.Context, userID, status string) ([]*entity.Project, error) {
	return s.projectRepo.List(ctx, userID, status)
}

// AddMember 挂接项目成员（承包商必须带工种）
func (s *ProjectService) AddMember(ctx context.Context, projectID string, req *AddMemberRequest) (*entity.ProjectMember, error) {
	if _, err := s.projectRepo.FindByID(ctx, projectID); err != nil {
		return nil, fmt.Errorf("查找项目失败: %w", err)
	}
	if _, err := s.userRepo.FindByID(ctx, req.UserID); err != nil {
		return nil, fmt.Errorf("查找用户失败: %w", err)
	}
	if req.Role == entity.MemberRoleContractor && req.ContractorType == "" {
		return nil, &ValidationError{Message: "承包商成员必须指定工种"}
	}

	member := &entity.ProjectMember{
		ID:             generateID(),
		ProjectID:      projectID,
		UserID:         req.UserID,
		Role:           req.Role,
		ContractorType: req.ContractorType,
	}
	if err := s.projectRepo.AddMember(ctx, member); err != nil {
		return nil, fmt.Errorf("挂接项目成员失败: %w", err)
	}
	return member, nil
}

// GetParticipants 查询项目干系人
func (s *ProjectService) GetParticipants(ctx context.Context, projectID string) (*entity.Participants, error) {
	return s.projectRepo.ResolveParticipants(ctx, projectID)
}
