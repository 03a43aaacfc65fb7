package service

import (
	"fmt"
	"time"

	"github.com/deepaksahajwani/4th-dimension/internal/studio/entity"
)

// ValidationError 更新载荷校验错误，对应400，存储状态不发生任何变化
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UpdateDrawingRequest 图纸部分更新载荷
// 指针字段区分"未提供"与零值；日期一律ISO-8601字符串
type UpdateDrawingRequest struct {
	Name               *string `json:"name"`
	UnderReview        *bool   `json:"under_review"`
	IsApproved         *bool   `json:"is_approved"`
	IsIssued           *bool   `json:"is_issued"`
	HasPendingRevision *bool   `json:"has_pending_revision"`
	IsBlocked          *bool   `json:"is_blocked"`
	IsActive           *bool   `json:"is_active"`
	FileURL            *string `json:"file_url"`
	RevisionNotes      *string `json:"revision_notes"`
	RevisionDueDate    *string `json:"revision_due_date"`
	DueDate            *string `json:"due_date"`
	AssignedToID       *string `json:"assigned_to_id"`
	SequenceNumber     *int    `json:"sequence_number"`
	// 乐观锁期望版本；不传则以读取到的当前版本为准
	Version *int `json:"version"`
}

// transitionResult 一次状态迁移的产物：
// 待落库补丁 + 触发的通知事件 + 是否解锁流水线下一张
type transitionResult struct {
	patch          map[string]interface{}
	events         []string
	unlockSequence bool
}

// parseDate 解析ISO-8601日期，支持日期和带时间两种形式
// 解析失败整个更新请求作废
func parseDate(field, value string) (*time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, &ValidationError{Message: fmt.Sprintf("字段 %s 不是合法的ISO-8601日期: %q", field, value)}
}

// applyDrawingUpdate 图纸状态机核心 —— 纯函数，不做任何I/O
// 按优先级依次套用迁移规则，原地修改 d 并产出等价的落库补丁；
// 规则判断一律基于调用前的存储状态快照
func applyDrawingUpdate(d *entity.Drawing, req *UpdateDrawingRequest, now time.Time) (*transitionResult, error) {
	// 先把全部日期解析完，保证校验失败时无部分生效
	var dueDate, revisionDueDate *time.Time
	if req.DueDate != nil && *req.DueDate != "" {
		t, err := parseDate("due_date", *req.DueDate)
		if err != nil {
			return nil, err
		}
		dueDate = t
	}
	if req.RevisionDueDate != nil && *req.RevisionDueDate != "" {
		t, err := parseDate("revision_due_date", *req.RevisionDueDate)
		if err != nil {
			return nil, err
		}
		revisionDueDate = t
	}

	// 迁移前的存储状态快照，规则5/6/4依赖调用前的值
	wasIssued := d.IsIssued
	hadPendingRevision := d.HasPendingRevision
	priorIssuedDate := d.IssuedDate

	res := &transitionResult{patch: map[string]interface{}{}}
	set := func(column string, value interface{}) {
		res.patch[column] = value
	}

	// 规则7：无副作用字段原样生效（先铺底，规则1-6的强制值在其上覆盖）
	if req.Name != nil {
		d.Name = *req.Name
		set("name", *req.Name)
	}
	if dueDate != nil {
		d.DueDate = dueDate
		set("due_date", dueDate)
	}
	if req.AssignedToID != nil {
		d.AssignedToID = req.AssignedToID
		set("assigned_to_id", req.AssignedToID)
	}
	if req.SequenceNumber != nil {
		d.SequenceNumber = req.SequenceNumber
		set("sequence_number", req.SequenceNumber)
	}
	if req.IsBlocked != nil {
		d.IsBlocked = *req.IsBlocked
		set("is_blocked", *req.IsBlocked)
	}
	if req.IsActive != nil {
		d.IsActive = *req.IsActive
		set("is_active", *req.IsActive)
	}
	if req.FileURL != nil {
		d.FileURL = req.FileURL
		set("file_url", req.FileURL)
	}
	if req.UnderReview != nil {
		d.UnderReview = *req.UnderReview
		set("under_review", *req.UnderReview)
	}
	if req.IsApproved != nil {
		d.IsApproved = *req.IsApproved
		set("is_approved", *req.IsApproved)
	}
	if req.IsIssued != nil {
		d.IsIssued = *req.IsIssued
		set("is_issued", *req.IsIssued)
	}

	// 规则1：上传送审 —— 新文件作废此前的批准，需重新审批
	if req.UnderReview != nil && *req.UnderReview {
		d.ReviewedDate = &now
		set("reviewed_date", &now)
		d.IsApproved = false
		set("is_approved", false)
		res.events = append(res.events, entity.EventUpload)
	}

	// 规则2：批准
	if req.IsApproved != nil && *req.IsApproved {
		d.ApprovedDate = &now
		set("approved_date", &now)
		res.events = append(res.events, entity.EventApproved)
	}

	// 规则3：出图 —— 同时解锁流水线下一张
	if req.IsIssued != nil && *req.IsIssued {
		d.IssuedDate = &now
		set("issued_date", &now)
		res.unlockSequence = true
		res.events = append(res.events, entity.EventIssued)
	}

	// 规则4：撤图 —— 不是部分修改而是整体回退：
	// 已出图的成品被撤回后无物可审，直接回到待上传态
	if req.IsIssued != nil && !*req.IsIssued && wasIssued {
		d.IssuedDate = nil
		set("issued_date", nil)
		d.UnderReview = false
		set("under_review", false)
		d.IsApproved = false
		set("is_approved", false)
		d.ApprovedDate = nil
		set("approved_date", nil)
		d.FileURL = nil
		set("file_url", nil)
	}

	// 规则5：提出修订 —— 强制撤销出图态，登记或续写修订周期
	if req.HasPendingRevision != nil && *req.HasPendingRevision {
		d.HasPendingRevision = true
		set("has_pending_revision", true)
		d.IsIssued = false
		set("is_issued", false)

		notes := ""
		if req.RevisionNotes != nil {
			notes = *req.RevisionNotes
		}
		d.CurrentRevisionNotes = notes
		set("current_revision_notes", notes)
		d.CurrentRevisionDueDate = revisionDueDate
		set("current_revision_due_date", revisionDueDate)

		history := make(entity.RevisionHistory, len(d.RevisionHistory))
		copy(history, d.RevisionHistory)
		if idx := history.OpenItem(); idx >= 0 {
			// 同一周期上重复提修订：原地更新，不另开新周期
			history[idx].RevisionRequestedDate = &now
			history[idx].RevisionNotes = notes
			history[idx].RevisionDueDate = revisionDueDate
		} else {
			history = append(history, entity.RevisionHistoryItem{
				IssuedDate:            priorIssuedDate,
				RevisionRequestedDate: &now,
				RevisionNotes:         notes,
				RevisionDueDate:       revisionDueDate,
			})
		}
		d.RevisionHistory = history
		set("revision_history", history)

		res.events = append(res.events, entity.EventRevisionRequested)
	}

	// 规则6：修订闭环 —— 计数+1，末尾未闭环周期盖上完成时间
	if req.HasPendingRevision != nil && !*req.HasPendingRevision && hadPendingRevision {
		d.HasPendingRevision = false
		set("has_pending_revision", false)
		d.RevisionCount++
		set("revision_count", d.RevisionCount)
		d.CurrentRevisionNotes = ""
		set("current_revision_notes", "")
		d.CurrentRevisionDueDate = nil
		set("current_revision_due_date", nil)

		history := make(entity.RevisionHistory, len(d.RevisionHistory))
		copy(history, d.RevisionHistory)
		if idx := history.OpenItem(); idx >= 0 {
			history[idx].ResolvedDate = &now
		}
		d.RevisionHistory = history
		set("revision_history", history)

		res.events = append(res.events, entity.EventRevisionResolved)
	}

	if len(res.patch) == 0 {
		return res, nil
	}

	d.UpdatedAt = now
	res.patch["updated_at"] = now
	return res, nil
}
