package repository

import (
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("version conflict")
)

// Repositories 仓库集合
type Repositories struct {
	User         *UserRepository
	Project      *ProjectRepository
	Drawing      *DrawingRepository
	Comment      *CommentRepository
	Notification *NotificationRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Project:      NewProjectRepository(db),
		Drawing:      NewDrawingRepository(db),
		Comment:      NewCommentRepository(db),
		Notification: NewNotificationRepository(db),
	}
}
