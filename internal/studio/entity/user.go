package entity

import (
	"time"
)

// User 用户实体 —— 事务所成员/客户/承包商/顾问/供应商共用一张表，按角色区分
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	Name         string     `json:"name" gorm:"size:64;not null"`
	Email        string     `json:"email" gorm:"size:128;uniqueIndex"`
	Mobile       string     `json:"mobile" gorm:"size:20;index"`
	PasswordHash string     `json:"-" gorm:"size:128"`
	Role         string     `json:"role" gorm:"size:32;not null;default:team_member"`
	FirmID       string     `json:"firm_id" gorm:"size:32;index"`
	Status       string     `json:"status" gorm:"size:16;not null;default:active"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// 用户角色
const (
	RoleOwner      = "owner"
	RoleTeamLeader = "team_leader"
	RoleTeamMember = "team_member"
	RoleClient     = "client"
	RoleContractor = "contractor"
	RoleConsultant = "consultant"
	RoleVendor     = "vendor"
)

// 用户状态
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)
