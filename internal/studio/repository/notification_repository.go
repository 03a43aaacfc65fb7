package repository

import (
	"context"

	"github.com/deepaksahajwani/4th-dimension/internal/studio/entity"
	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create 创建站内通知
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// ListByUser 获取用户通知列表，最新在前
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}
	var items []*entity.Notification
	err := query.Order("created_at DESC").Limit(limit).Find(&items).Error
	return items, err
}

// MarkRead 标记通知已读
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Model(&entity.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
		Update("read_at", gorm.Expr("NOW()"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordDispatch 落一条渠道投递结果，失败不阻断主流程由调用方保证
func (r *NotificationRepository) RecordDispatch(ctx context.Context, d *entity.NotificationDispatch) error {
	return r.db.WithContext(ctx).Create(d).Error
}
