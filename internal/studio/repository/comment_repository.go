package repository

import (
	"context"

	"github.com/deepaksahajwani/4th-dimension/internal/studio/entity"
	"gorm.io/gorm"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create 创建评论
func (r *CommentRepository) Create(ctx context.Context, comment *entity.DrawingComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// ListByDrawing 获取图纸评论列表，时间正序
func (r *CommentRepository) ListByDrawing(ctx context.Context, drawingID string) ([]*entity.DrawingComment, error) {
	var comments []*entity.DrawingComment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("drawing_id = ?", drawingID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}
