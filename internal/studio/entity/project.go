package entity

import (
	"time"
)

// Project 项目实体
type Project struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	Code         string     `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name         string     `json:"name" gorm:"size:128;not null"`
	ProjectType  string     `json:"project_type" gorm:"size:32;not null;default:residential"`
	Status       string     `json:"status" gorm:"size:16;not null;default:active"`
	Address      string     `json:"address" gorm:"type:text"`
	OwnerID      string     `json:"owner_id" gorm:"size:32;not null"`
	TeamLeaderID string     `json:"team_leader_id" gorm:"size:32"`
	ClientID     string     `json:"client_id" gorm:"size:32"`
	StartDate    *time.Time `json:"start_date" gorm:"type:date"`
	DueDate      *time.Time `json:"due_date" gorm:"type:date"`
	CreatedBy    string     `json:"created_by" gorm:"size:32;not null"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at" gorm:"index"`

	// 关联
	Owner      *User           `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	TeamLeader *User           `json:"team_leader,omitempty" gorm:"foreignKey:TeamLeaderID"`
	Client     *User           `json:"client,omitempty" gorm:"foreignKey:ClientID"`
	Members    []ProjectMember `json:"members,omitempty" gorm:"foreignKey:ProjectID"`
	Drawings   []Drawing       `json:"drawings,omitempty" gorm:"foreignKey:ProjectID"`
}

func (Project) TableName() string {
	return "projects"
}

// ProjectMember 项目成员（承包商/顾问等按角色挂接到项目）
type ProjectMember struct {
	ID             string    `json:"id" gorm:"primaryKey;size:32"`
	ProjectID      string    `json:"project_id" gorm:"size:32;not null;index"`
	UserID         string    `json:"user_id" gorm:"size:32;not null"`
	Role           string    `json:"role" gorm:"size:32;not null"`
	ContractorType string    `json:"contractor_type" gorm:"size:32"`
	CreatedAt      time.Time `json:"created_at"`

	// 关联
	Project *Project `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	User    *User    `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (ProjectMember) TableName() string {
	return "project_members"
}

// ContractorRef 承包商成员及其工种
type ContractorRef struct {
	UserID         string `json:"user_id"`
	ContractorType string `json:"contractor_type"`
}

// Participants 项目干系人快照，通知扇出用
type Participants struct {
	OwnerID       string          `json:"owner_id"`
	TeamLeaderID  string          `json:"team_leader_id"`
	ClientID      string          `json:"client_id"`
	ContractorIDs []string        `json:"contractor_ids"`
	ConsultantIDs []string        `json:"consultant_ids"`
	Contractors   []ContractorRef `json:"contractors"`
}

// 项目类型
const (
	ProjectTypeResidential = "residential"
	ProjectTypeCommercial  = "commercial"
	ProjectTypeInterior    = "interior"
	ProjectTypeLandscape   = "landscape"
)

// 项目状态
const (
	ProjectStatusActive    = "active"
	ProjectStatusOnHold    = "on_hold"
	ProjectStatusCompleted = "completed"
	ProjectStatusCancelled = "cancelled"
)

// 项目成员角色
const (
	MemberRoleTeamMember = "team_member"
	MemberRoleContractor = "contractor"
	MemberRoleConsultant = "consultant"
	MemberRoleVendor     = "vendor"
)

// 承包商工种
const (
	ContractorTypeCivil      = "civil"
	ContractorTypePlumbing   = "plumbing"
	ContractorTypeElectrical = "electrical"
	ContractorTypeHVAC       = "hvac"
	ContractorTypeCarpentry  = "carpentry"
	ContractorTypePainting   = "painting"
)

// DrawingSeed 项目类型模板中的一条图纸预设
type DrawingSeed struct {
	Category string
	Name     string
}

// ProjectDrawingTemplates 各项目类型建项时批量预建的图纸流水线
// 每个类别内按出现顺序编排 sequence_number，首张激活
var ProjectDrawingTemplates = map[string][]DrawingSeed{
	ProjectTypeResidential: {
		{CategoryArchitectural, "Site Plan"},
		{CategoryArchitectural, "Floor Plan"},
		{CategoryArchitectural, "Elevations"},
		{CategoryStructural, "Foundation Plan"},
		{CategoryStructural, "Column Layout"},
		{CategoryStructural, "Slab Details"},
		{CategoryPlumbing, "Water Supply Layout"},
		{CategoryPlumbing, "Drainage Layout"},
		{CategoryElectrical, "Electrical Layout"},
		{CategoryCeiling, "False Ceiling Layout"},
		{CategoryKitchen, "Kitchen Layout"},
	},
	ProjectTypeCommercial: {
		{CategoryArchitectural, "Site Plan"},
		{CategoryArchitectural, "Floor Plan"},
		{CategoryStructural, "Foundation Plan"},
		{CategoryStructural, "Framing Plan"},
		{CategoryElectrical, "Electrical Layout"},
		{CategoryHVAC, "HVAC Layout"},
		{CategoryPlumbing, "Plumbing Layout"},
	},
	ProjectTypeInterior: {
		{CategoryFurniture, "Furniture Layout"},
		{CategoryCeiling, "False Ceiling Layout"},
		{CategoryElectrical, "Electrical Layout"},
		{CategoryKitchen, "Kitchen Layout"},
	},
	ProjectTypeLandscape: {
		{CategoryLandscape, "Master Landscape Plan"},
		{CategoryLandscape, "Planting Plan"},
		{CategoryElectrical, "Garden Lighting Layout"},
	},
}
