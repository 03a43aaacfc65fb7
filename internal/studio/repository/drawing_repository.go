package repository

import (
	"context"
	"errors"

	"github.com/deepaksahajwani/4th-dimension/internal/studio/entity"
	"gorm.io/gorm"
)

type DrawingRepository struct {
	db *gorm.DB
}

func NewDrawingRepository(db *gorm.DB) *DrawingRepository {
	return &DrawingRepository{db: db}
}

// FindByID 根据ID查找图纸，软删除的视为不存在
func (r *DrawingRepository) FindByID(ctx context.Context, id string) (*entity.Drawing, error) {
	var drawing entity.Drawing
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&drawing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &drawing, nil
}

// Create 创建图纸记录
func (r *DrawingRepository) Create(ctx context.Context, drawing *entity.Drawing) error {
	return r.db.WithContext(ctx).Create(drawing).Error
}

// CreateBatch 批量创建图纸（建项模板预建用）
func (r *DrawingRepository) CreateBatch(ctx context.Context, drawings []*entity.Drawing) error {
	if len(drawings) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&drawings).Error
}

// Update 按乐观锁版本号整体落一次补丁
// 版本不匹配返回 ErrConflict，记录不存在返回 ErrNotFound；
// 单条UPDATE保证本次状态迁移对外原子可见
func (r *DrawingRepository) Update(ctx context.Context, id string, version int, patch map[string]interface{}) error {
	patch["version"] = version + 1
	res := r.db.WithContext(ctx).Model(&entity.Drawing{}).
		Where("id = ? AND version = ? AND deleted_at IS NULL", id, version).
		Updates(patch)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&entity.Drawing{}).
			Where("id = ? AND deleted_at IS NULL", id).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

// ListFilter 项目内图纸列表过滤条件
type ListFilter struct {
	Category       string
	Issued         *bool
	Pending        *bool
	Active         *bool
	Assignee       string
	IncludeDeleted bool
}

// ListByProject 按项目获取图纸列表，默认排除软删除
func (r *DrawingRepository) ListByProject(ctx context.Context, projectID string, filter ListFilter) ([]*entity.Drawing, error) {
	q := r.db.WithContext(ctx).Where("project_id = ?", projectID)
	if !filter.IncludeDeleted {
		q = q.Where("deleted_at IS NULL")
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Issued != nil {
		q = q.Where("is_issued = ?", *filter.Issued)
	}
	if filter.Pending != nil {
		q = q.Where("has_pending_revision = ?", *filter.Pending)
	}
	if filter.Active != nil {
		q = q.Where("is_active = ?", *filter.Active)
	}
	if filter.Assignee != "" {
		q = q.Where("assigned_to_id = ?", filter.Assignee)
	}

	var drawings []*entity.Drawing
	err := q.Order("category ASC, sequence_number ASC NULLS LAST, created_at ASC").
		Find(&drawings).Error
	return drawings, err
}

// FindNextInSequence 查找同项目同类别中序号紧邻的下一张图纸
// 找不到不算错误（流水线已到末尾），返回 nil
func (r *DrawingRepository) FindNextInSequence(ctx context.Context, projectID, category string, seq int) (*entity.Drawing, error) {
	var drawing entity.Drawing
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND category = ? AND sequence_number = ? AND deleted_at IS NULL",
			projectID, category, seq+1).
		First(&drawing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &drawing, nil
}

// SoftDelete 软删除，图纸永不硬删
func (r *DrawingRepository) SoftDelete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&entity.Drawing{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", gorm.Expr("NOW()"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementCommentCounters 评论计数自增（评论者本人不计未读）
func (r *DrawingRepository) IncrementCommentCounters(ctx context.Context, id string, unreadDelta int) error {
	return r.db.WithContext(ctx).Model(&entity.Drawing{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{
			"comment_count":   gorm.Expr("comment_count + 1"),
			"unread_comments": gorm.Expr("unread_comments + ?", unreadDelta),
		}).Error
}
