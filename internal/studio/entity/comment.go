package entity

import (
	"time"
)

// DrawingComment 图纸评论
type DrawingComment struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	DrawingID string    `json:"drawing_id" gorm:"size:32;not null;index"`
	ProjectID string    `json:"project_id" gorm:"size:32;not null;index"`
	UserID    string    `json:"user_id" gorm:"size:32;not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (DrawingComment) TableName() string {
	return "drawing_comments"
}
