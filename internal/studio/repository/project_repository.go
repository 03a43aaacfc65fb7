package repository

import (
	"context"
	"errors"

	"github.com/deepaksahajwani/4th-dimension/internal/studio/entity"
	"gorm.io/gorm"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// FindByID 根据ID查找项目
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*entity.Project, error) {
	var project entity.Project
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// Create 创建项目
func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// List 列出用户可见的项目：本人拥有/负责/作为客户，或作为成员挂接
func (r *ProjectRepository) List(ctx context.Context, userID string, status string) ([]*entity.Project, error) {
	query := r.db.WithContext(ctx).
		Where("deleted_at IS NULL").
		Where("owner_id = ? OR team_leader_id = ? OR client_id = ? OR id IN (?)",
			userID, userID, userID,
			r.db.Model(&entity.ProjectMember{}).Select("project_id").Where("user_id = ?", userID))
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var projects []*entity.Project
	if err := query.Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// AddMember 挂接项目成员
func (r *ProjectRepository) AddMember(ctx context.Context, member *entity.ProjectMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

// ResolveParticipants 解析项目干系人（业主/组长/客户/承包商/顾问），通知扇出用
func (r *ProjectRepository) ResolveParticipants(ctx context.Context, projectID string) (*entity.Participants, error) {
	project, err := r.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var members []entity.ProjectMember
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Find(&members).Error; err != nil {
		return nil, err
	}

	p := &entity.Participants{
		OwnerID:      project.OwnerID,
		TeamLeaderID: project.TeamLeaderID,
		ClientID:     project.ClientID,
	}
	for _, m := range members {
		switch m.Role {
		case entity.MemberRoleContractor:
			p.ContractorIDs = append(p.ContractorIDs, m.UserID)
			p.Contractors = append(p.Contractors, entity.ContractorRef{
				UserID:         m.UserID,
				ContractorType: m.ContractorType,
			})
		case entity.MemberRoleConsultant:
			p.ConsultantIDs = append(p.ConsultantIDs, m.UserID)
		}
	}
	return p, nil
}

// FindContractor 按承包商类型查找项目内指定承包商
func (r *ProjectRepository) FindContractor(ctx context.Context, projectID, contractorType string) (*entity.ProjectMember, error) {
	var member entity.ProjectMember
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND role = ? AND contractor_type = ?",
			projectID, entity.MemberRoleContractor, contractorType).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}
