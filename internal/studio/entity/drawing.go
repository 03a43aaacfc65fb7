package entity

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Drawing 图纸实体 —— 项目下的一张交付图纸
// 工作流状态由布尔标志位组合表达（与移动端存储协议兼容），
// 业务判断统一走 Lifecycle() 派生状态
type Drawing struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	ProjectID string `json:"project_id" gorm:"size:32;not null;index"`
	Category  string `json:"category" gorm:"size:32;not null"`
	Name      string `json:"name" gorm:"size:128;not null"`

	// 工作流标志位
	UnderReview        bool `json:"under_review" gorm:"not null;default:false"`
	IsApproved         bool `json:"is_approved" gorm:"not null;default:false"`
	IsIssued           bool `json:"is_issued" gorm:"not null;default:false"`
	HasPendingRevision bool `json:"has_pending_revision" gorm:"not null;default:false"`
	IsBlocked          bool `json:"is_blocked" gorm:"not null;default:false"`
	IsActive           bool `json:"is_active" gorm:"not null;default:false"`

	// 工作流日期
	ReviewedDate           *time.Time `json:"reviewed_date"`
	ApprovedDate           *time.Time `json:"approved_date"`
	IssuedDate             *time.Time `json:"issued_date"`
	CurrentRevisionDueDate *time.Time `json:"current_revision_due_date"`
	DueDate                *time.Time `json:"due_date" gorm:"type:date"`

	// 修订记录
	RevisionCount        int             `json:"revision_count" gorm:"not null;default:0"`
	CurrentRevisionNotes string          `json:"current_revision_notes" gorm:"type:text"`
	RevisionHistory      RevisionHistory `json:"revision_history" gorm:"type:jsonb"`

	// 文件引用
	FileURL          *string    `json:"file_url" gorm:"size:512"`
	RevisionFileURLs StringList `json:"revision_file_urls" gorm:"type:jsonb"`

	// 流水线排序与指派
	SequenceNumber *int    `json:"sequence_number"`
	AssignedToID   *string `json:"assigned_to_id" gorm:"size:32"`

	// 互动计数
	CommentCount   int `json:"comment_count" gorm:"not null;default:0"`
	UnreadComments int `json:"unread_comments" gorm:"not null;default:0"`

	// 乐观锁版本号，并发PUT冲突时返回409
	Version int `json:"version" gorm:"not null;default:0"`

	CreatedBy string     `json:"created_by" gorm:"size:32;not null"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at" gorm:"index"`

	// 关联
	Project  *Project `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	Assignee *User    `json:"assignee,omitempty" gorm:"foreignKey:AssignedToID"`
}

func (Drawing) TableName() string {
	return "drawings"
}

// RevisionHistoryItem 一次 出图→修订→闭环 的修订周期
type RevisionHistoryItem struct {
	IssuedDate            *time.Time `json:"issued_date"`
	RevisionRequestedDate *time.Time `json:"revision_requested_date"`
	RevisionNotes         string     `json:"revision_notes"`
	RevisionDueDate       *time.Time `json:"revision_due_date"`
	ResolvedDate          *time.Time `json:"resolved_date"`
}

// Open 该修订周期是否仍未闭环
func (i RevisionHistoryItem) Open() bool {
	return i.ResolvedDate == nil
}

// RevisionHistory 按时间顺序追加的修订周期列表，落库为JSONB
// 不变式：任意时刻最多只有一条 ResolvedDate == nil 的记录
type RevisionHistory []RevisionHistoryItem

func (h RevisionHistory) Value() (driver.Value, error) {
	if h == nil {
		return json.Marshal(RevisionHistory{})
	}
	return json.Marshal(h)
}

func (h *RevisionHistory) Scan(value interface{}) error {
	if value == nil {
		*h = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, h)
}

// OpenItem 返回末尾未闭环的修订周期，没有则返回-1
func (h RevisionHistory) OpenItem() int {
	if n := len(h); n > 0 && h[n-1].Open() {
		return n - 1
	}
	return -1
}

// StringList 字符串列表，落库为JSONB
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal(StringList{})
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// 图纸类别
const (
	CategoryStructural    = "structural"
	CategoryArchitectural = "architectural"
	CategoryPlumbing      = "plumbing"
	CategoryElectrical    = "electrical"
	CategoryHVAC          = "hvac"
	CategoryFurniture     = "furniture"
	CategoryCeiling       = "ceiling"
	CategoryKitchen       = "kitchen"
	CategoryLandscape     = "landscape"
	CategoryOther         = "other"
)

// DrawingCategories 全部合法类别，按常用顺序
var DrawingCategories = []string{
	CategoryStructural,
	CategoryArchitectural,
	CategoryPlumbing,
	CategoryElectrical,
	CategoryHVAC,
	CategoryFurniture,
	CategoryCeiling,
	CategoryKitchen,
	CategoryLandscape,
	CategoryOther,
}

// ValidCategory 类别枚举校验
func ValidCategory(c string) bool {
	for _, v := range DrawingCategories {
		if v == c {
			return true
		}
	}
	return false
}

// LifecycleState 由标志位派生的图纸生命周期状态
type LifecycleState string

const (
	LifecyclePending         LifecycleState = "pending"
	LifecycleUnderReview     LifecycleState = "under_review"
	LifecycleApproved        LifecycleState = "approved"
	LifecycleIssued          LifecycleState = "issued"
	LifecycleRevisionPending LifecycleState = "revision_pending"
)

// Lifecycle 从存储的布尔标志位派生当前状态
// 优先级：修订中 > 已出图 > 已批准 > 评审中 > 待上传
func (d *Drawing) Lifecycle() LifecycleState {
	switch {
	case d.HasPendingRevision:
		return LifecycleRevisionPending
	case d.IsIssued:
		return LifecycleIssued
	case d.IsApproved:
		return LifecycleApproved
	case d.FileURL != nil:
		return LifecycleUnderReview
	default:
		return LifecyclePending
	}
}
