package entity

import (
	"time"
)

// Notification 站内通知记录 —— 无论电话渠道成败都会落一条
type Notification struct {
	ID        string     `json:"id" gorm:"primaryKey;size:32"`
	UserID    string     `json:"user_id" gorm:"size:32;not null;index"`
	ProjectID string     `json:"project_id" gorm:"size:32;index"`
	Title     string     `json:"title" gorm:"size:128;not null"`
	Message   string     `json:"message" gorm:"type:text"`
	Link      string     `json:"link" gorm:"size:256"`
	Event     string     `json:"event" gorm:"size:32"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// NotificationDispatch 单次扇出中某个 收件人×渠道 的投递结果
// 渠道失败只记录不回滚，用于排障和送达率观测
type NotificationDispatch struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	DrawingID   string    `json:"drawing_id" gorm:"size:32;index"`
	ProjectID   string    `json:"project_id" gorm:"size:32;index"`
	RecipientID string    `json:"recipient_id" gorm:"size:32;not null"`
	Event       string    `json:"event" gorm:"size:32;not null"`
	Channel     string    `json:"channel" gorm:"size:16;not null"`
	Success     bool      `json:"success" gorm:"not null"`
	MessageID   string    `json:"message_id" gorm:"size:64"`
	Error       string    `json:"error" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
}

func (NotificationDispatch) TableName() string {
	return "notification_dispatches"
}

// 通知事件
const (
	EventUpload            = "upload"
	EventApprovalNeeded    = "approval_needed"
	EventApproved          = "approved"
	EventIssued            = "issued"
	EventRevisionRequested = "revision_requested"
	EventRevisionResolved  = "revision_resolved"
	EventCommentAdded      = "comment_added"
)

// 投递渠道
const (
	ChannelWhatsApp = "whatsapp"
	ChannelSMS      = "sms"
	ChannelEmail    = "email"
	ChannelInApp    = "in_app"
)
