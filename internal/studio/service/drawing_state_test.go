package service

import (
	"testing"
	"time"

	"github.com/deepaksahajwani/4th-dimension/internal/studio/entity"
)

func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

func pendingDrawing() *entity.Drawing {
	return &entity.Drawing{
		ID:        "drw-001",
		ProjectID: "proj-001",
		Category:  entity.CategoryStructural,
		Name:      "Foundation Plan",
		IsActive:  true,
	}
}

func mustApply(t *testing.T, d *entity.Drawing, req *UpdateDrawingRequest) *transitionResult {
	t.Helper()
	res, err := applyDrawingUpdate(d, req, time.Now())
	if err != nil {
		t.Fatalf("applyDrawingUpdate failed: %v", err)
	}
	return res
}

func hasEvent(res *transitionResult, event string) bool {
	for _, e := range res.events {
		if e == event {
			return true
		}
	}
	return false
}

func TestUploadResetsApproval(t *testing.T) {
	d := pendingDrawing()
	d.IsApproved = true
	approvedAt := time.Now().Add(-time.Hour)
	d.ApprovedDate = &approvedAt

	res := mustApply(t, d, &UpdateDrawingRequest{
		UnderReview: boolPtr(true),
		FileURL:     strPtr("https://files.local/plan-v2.pdf"),
	})

	if !d.UnderReview {
		t.Error("Expected under_review=true")
	}
	if d.IsApproved {
		t.Error("Expected new upload to reset is_approved")
	}
	if d.ReviewedDate == nil {
		t.Error("Expected reviewed_date stamped")
	}
	if !hasEvent(res, entity.EventUpload) {
		t.Errorf("Expected upload event, got %v", res.events)
	}
	if v, ok := res.patch["is_approved"]; !ok || v.(bool) {
		t.Error("Expected patch to force is_approved=false")
	}
}

func TestApproveStampsDate(t *testing.T) {
	d := pendingDrawing()
	d.UnderReview = true

	res := mustApply(t, d, &UpdateDrawingRequest{IsApproved: boolPtr(true)})

	if !d.IsApproved || d.ApprovedDate == nil {
		t.Error("Expected is_approved=true with approved_date set")
	}
	if !hasEvent(res, entity.EventApproved) {
		t.Errorf("Expected approved event, got %v", res.events)
	}
}

func TestIssueUnlocksSequence(t *testing.T) {
	d := pendingDrawing()
	d.IsApproved = true

	res := mustApply(t, d, &UpdateDrawingRequest{IsIssued: boolPtr(true)})

	if !d.IsIssued || d.IssuedDate == nil {
		t.Error("Expected is_issued=true with issued_date set")
	}
	if !res.unlockSequence {
		t.Error("Expected issue to request sequence unlock")
	}
	if !hasEvent(res, entity.EventIssued) {
		t.Errorf("Expected issued event, got %v", res.events)
	}
}

// 撤图不是部分修改而是整体回退到待上传态
func TestUnIssueIsFullReset(t *testing.T) {
	now := time.Now()
	d := pendingDrawing()
	d.UnderReview = true
	d.IsApproved = true
	d.IsIssued = true
	d.ReviewedDate = &now
	d.ApprovedDate = &now
	d.IssuedDate = &now
	d.FileURL = strPtr("https://files.local/plan.pdf")

	res := mustApply(t, d, &UpdateDrawingRequest{IsIssued: boolPtr(false)})

	if d.IsIssued || d.IssuedDate != nil {
		t.Error("Expected issued state cleared")
	}
	if d.UnderReview || d.IsApproved || d.ApprovedDate != nil {
		t.Error("Expected review and approval state cleared")
	}
	if d.FileURL != nil {
		t.Error("Expected file_url cleared")
	}
	if res.unlockSequence {
		t.Error("Un-issue must not unlock the sequence")
	}
	if len(res.events) != 0 {
		t.Errorf("Un-issue should not emit events, got %v", res.events)
	}
}

// 未出图状态下 is_issued:false 只是无操作，不触发整体回退
func TestUnIssueOnPendingIsNoop(t *testing.T) {
	d := pendingDrawing()
	d.FileURL = strPtr("https://files.local/plan.pdf")
	d.UnderReview = true

	mustApply(t, d, &UpdateDrawingRequest{IsIssued: boolPtr(false)})

	if d.FileURL == nil || !d.UnderReview {
		t.Error("Reset must only fire when the drawing was actually issued")
	}
}

func TestRequestRevisionOpensCycle(t *testing.T) {
	now := time.Now()
	d := pendingDrawing()
	d.IsIssued = true
	d.IssuedDate = &now

	res := mustApply(t, d, &UpdateDrawingRequest{
		HasPendingRevision: boolPtr(true),
		RevisionNotes:      strPtr("fix dimensions"),
		RevisionDueDate:    strPtr("2025-01-15"),
	})

	if !d.HasPendingRevision {
		t.Error("Expected has_pending_revision=true")
	}
	if d.IsIssued {
		t.Error("Expected revision request to force is_issued=false")
	}
	if len(d.RevisionHistory) != 1 {
		t.Fatalf("Expected 1 history entry, got %d", len(d.RevisionHistory))
	}
	item := d.RevisionHistory[0]
	if item.RevisionNotes != "fix dimensions" {
		t.Errorf("Expected notes carried into history, got %q", item.RevisionNotes)
	}
	if item.ResolvedDate != nil {
		t.Error("Expected open cycle (resolved_date=nil)")
	}
	if item.IssuedDate == nil {
		t.Error("Expected cycle to record the issued date it interrupts")
	}
	if item.RevisionDueDate == nil || item.RevisionDueDate.Format("2006-01-02") != "2025-01-15" {
		t.Errorf("Expected due date 2025-01-15, got %v", item.RevisionDueDate)
	}
	if !hasEvent(res, entity.EventRevisionRequested) {
		t.Errorf("Expected revision_requested event, got %v", res.events)
	}
}

// 同一周期上重复提修订：原地更新，不另开新周期
func TestRepeatedRevisionRequestUpdatesInPlace(t *testing.T) {
	d := pendingDrawing()
	d.IsIssued = true

	mustApply(t, d, &UpdateDrawingRequest{
		HasPendingRevision: boolPtr(true),
		RevisionNotes:      strPtr("first pass"),
	})
	mustApply(t, d, &UpdateDrawingRequest{
		HasPendingRevision: boolPtr(true),
		RevisionNotes:      strPtr("second pass, more detail"),
	})

	if len(d.RevisionHistory) != 1 {
		t.Fatalf("Expected a single open cycle, got %d entries", len(d.RevisionHistory))
	}
	if d.RevisionHistory[0].RevisionNotes != "second pass, more detail" {
		t.Errorf("Expected in-place update, got %q", d.RevisionHistory[0].RevisionNotes)
	}
}

func TestResolveRevisionClosesCycle(t *testing.T) {
	d := pendingDrawing()
	d.IsIssued = true
	mustApply(t, d, &UpdateDrawingRequest{
		HasPendingRevision: boolPtr(true),
		RevisionNotes:      strPtr("fix dimensions"),
	})

	res := mustApply(t, d, &UpdateDrawingRequest{HasPendingRevision: boolPtr(false)})

	if d.HasPendingRevision {
		t.Error("Expected has_pending_revision=false")
	}
	if d.RevisionCount != 1 {
		t.Errorf("Expected revision_count=1, got %d", d.RevisionCount)
	}
	if d.CurrentRevisionNotes != "" || d.CurrentRevisionDueDate != nil {
		t.Error("Expected current revision fields cleared")
	}
	if len(d.RevisionHistory) != 1 || d.RevisionHistory[0].ResolvedDate == nil {
		t.Error("Expected trailing cycle closed with resolved_date")
	}
	if !hasEvent(res, entity.EventRevisionResolved) {
		t.Errorf("Expected revision_resolved event, got %v", res.events)
	}
}

// 修订闭环在待修订为假时是无操作，计数不得变化
func TestResolveWithoutPendingIsNoop(t *testing.T) {
	d := pendingDrawing()

	mustApply(t, d, &UpdateDrawingRequest{HasPendingRevision: boolPtr(false)})

	if d.RevisionCount != 0 {
		t.Errorf("Expected revision_count unchanged, got %d", d.RevisionCount)
	}
	if len(d.RevisionHistory) != 0 {
		t.Error("Expected no history entries")
	}
}

// 任意请求序列下 revision_history 至多一个未闭环周期，计数单调递增
func TestRevisionInvariantsAcrossSequence(t *testing.T) {
	d := pendingDrawing()
	d.IsIssued = true

	reqs := []*UpdateDrawingRequest{
		{HasPendingRevision: boolPtr(true), RevisionNotes: strPtr("r1")},
		{HasPendingRevision: boolPtr(true), RevisionNotes: strPtr("r1 again")},
		{HasPendingRevision: boolPtr(false)},
		{IsIssued: boolPtr(true)},
		{HasPendingRevision: boolPtr(true), RevisionNotes: strPtr("r2")},
		{HasPendingRevision: boolPtr(false)},
		{HasPendingRevision: boolPtr(false)},
	}

	prevCount := 0
	for i, req := range reqs {
		mustApply(t, d, req)

		open := 0
		for _, item := range d.RevisionHistory {
			if item.Open() {
				open++
			}
		}
		if open > 1 {
			t.Fatalf("Step %d: %d open cycles, want at most 1", i, open)
		}
		if d.RevisionCount < prevCount {
			t.Fatalf("Step %d: revision_count decreased %d -> %d", i, prevCount, d.RevisionCount)
		}
		prevCount = d.RevisionCount
	}

	if d.RevisionCount != 2 {
		t.Errorf("Expected 2 resolved revisions, got %d", d.RevisionCount)
	}
	if len(d.RevisionHistory) != 2 {
		t.Errorf("Expected 2 history entries, got %d", len(d.RevisionHistory))
	}
}

func TestMalformedDateRejectsWholeUpdate(t *testing.T) {
	d := pendingDrawing()

	_, err := applyDrawingUpdate(d, &UpdateDrawingRequest{
		Name:    strPtr("should not apply"),
		DueDate: strPtr("15/01/2025"),
	}, time.Now())

	if err == nil {
		t.Fatal("Expected validation error for malformed date")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("Expected *ValidationError, got %T", err)
	}
	if d.Name != "Foundation Plan" {
		t.Error("Expected no partial state change after validation failure")
	}
}

func TestVerbatimFieldsPassThrough(t *testing.T) {
	d := pendingDrawing()
	seq := 3

	res := mustApply(t, d, &UpdateDrawingRequest{
		Name:           strPtr("Revised Foundation Plan"),
		AssignedToID:   strPtr("user-042"),
		SequenceNumber: &seq,
		IsBlocked:      boolPtr(true),
		DueDate:        strPtr("2025-03-01"),
	})

	if d.Name != "Revised Foundation Plan" || !d.IsBlocked {
		t.Error("Expected verbatim fields applied")
	}
	if d.SequenceNumber == nil || *d.SequenceNumber != 3 {
		t.Error("Expected sequence_number applied")
	}
	if d.DueDate == nil || d.DueDate.Format("2006-01-02") != "2025-03-01" {
		t.Errorf("Expected due_date 2025-03-01, got %v", d.DueDate)
	}
	if len(res.events) != 0 || res.unlockSequence {
		t.Error("Verbatim-only update must not emit events or unlock")
	}
}

func TestEmptyUpdateProducesEmptyPatch(t *testing.T) {
	d := pendingDrawing()

	res := mustApply(t, d, &UpdateDrawingRequest{})

	if len(res.patch) != 0 {
		t.Errorf("Expected empty patch, got %v", res.patch)
	}
}

// 场景：建图→上传→批准→出图 的完整生命周期
func TestFullLifecycleScenario(t *testing.T) {
	d := pendingDrawing()
	if d.Lifecycle() != entity.LifecyclePending {
		t.Fatalf("Expected pending, got %s", d.Lifecycle())
	}

	mustApply(t, d, &UpdateDrawingRequest{
		UnderReview: boolPtr(true),
		FileURL:     strPtr("https://files.local/plan.pdf"),
	})
	if d.Lifecycle() != entity.LifecycleUnderReview {
		t.Fatalf("Expected under_review, got %s", d.Lifecycle())
	}

	mustApply(t, d, &UpdateDrawingRequest{IsApproved: boolPtr(true)})
	if d.Lifecycle() != entity.LifecycleApproved {
		t.Fatalf("Expected approved, got %s", d.Lifecycle())
	}

	res := mustApply(t, d, &UpdateDrawingRequest{IsIssued: boolPtr(true)})
	if d.Lifecycle() != entity.LifecycleIssued {
		t.Fatalf("Expected issued, got %s", d.Lifecycle())
	}
	if !res.unlockSequence {
		t.Error("Expected sequence unlock on issue")
	}

	// 撤图后恢复到与初始待上传态一致
	mustApply(t, d, &UpdateDrawingRequest{IsIssued: boolPtr(false)})
	if d.Lifecycle() != entity.LifecyclePending {
		t.Fatalf("Expected pending after un-issue, got %s", d.Lifecycle())
	}
	if d.FileURL != nil || d.UnderReview || d.IsApproved || d.ApprovedDate != nil || d.IssuedDate != nil {
		t.Error("Expected un-issue to restore the original pending state")
	}
}
