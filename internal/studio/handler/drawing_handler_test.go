package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/deepaksahajwani/4th-dimension/internal/studio/entity"
	"github.com/deepaksahajwani/4th-dimension/internal/studio/repository"
	"github.com/deepaksahajwani/4th-dimension/internal/studio/service"
	"github.com/deepaksahajwani/4th-dimension/internal/studio/testutil"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func setupDrawingTest(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	notifySvc := service.NewNotifyService(nil, nil, repos.User, repos.Project, repos.Notification, nil)
	drawingSvc := service.NewDrawingService(repos.Drawing, repos.Project, repos.Comment, notifySvc)
	h := NewDrawingHandler(drawingSvc, notifySvc)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	api.POST("/projects/:id/drawings", h.Create)
	api.GET("/projects/:id/drawings", h.List)
	api.GET("/drawings/:id", h.Get)
	api.PUT("/drawings/:id", h.Update)
	api.DELETE("/drawings/:id", h.Delete)
	api.POST("/drawings/:id/notify-issue", h.NotifyIssue)
	api.POST("/drawings/:id/comments", h.AddComment)
	api.GET("/drawings/:id/comments", h.ListComments)
	return db, router
}

func seedProjectWithOwner(t *testing.T, db *gorm.DB) *entity.Project {
	t.Helper()
	owner := testutil.SeedTestUser(t, db, "test-user-001", "Test Owner", entity.RoleOwner)
	leader := testutil.SeedTestUser(t, db, "test-user-002", "Test Leader", entity.RoleTeamLeader)
	return testutil.SeedTestProject(t, db, "project-00001", owner.ID, leader.ID)
}

func dataField(t *testing.T, resp map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Response has no data object: %v", resp)
	}
	return data
}

func drawingField(t *testing.T, resp map[string]interface{}) (map[string]interface{}, string) {
	t.Helper()
	data := dataField(t, resp)
	drawing, ok := data["drawing"].(map[string]interface{})
	if !ok {
		t.Fatalf("Response has no drawing view: %v", data)
	}
	lifecycle, _ := data["lifecycle"].(string)
	return drawing, lifecycle
}

func TestCreateDrawing(t *testing.T) {
	db, router := setupDrawingTest(t)
	project := seedProjectWithOwner(t, db)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(router, "POST", "/api/v1/projects/"+project.ID+"/drawings", map[string]interface{}{
		"category": "structural",
		"name":     "Foundation Plan",
		"due_date": "2025-06-01",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	data := dataField(t, testutil.ParseResponse(w))
	if data["category"] != "structural" || data["name"] != "Foundation Plan" {
		t.Errorf("Unexpected drawing payload: %v", data)
	}
	if data["is_active"] != true {
		t.Error("Expected new drawing to be active by default")
	}
}

func TestCreateDrawingRejectsUnknownCategory(t *testing.T) {
	db, router := setupDrawingTest(t)
	project := seedProjectWithOwner(t, db)

	w := testutil.DoRequest(router, "POST", "/api/v1/projects/"+project.ID+"/drawings", map[string]interface{}{
		"category": "masonry",
		"name":     "Wall Plan",
	}, testutil.DefaultTestToken())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if code, _ := resp["code"].(float64); int(code) != 40000 {
		t.Errorf("Expected code 40000, got %v", resp["code"])
	}
}

// 上传→批准→出图→撤图 全流程，派生生命周期随标志位变化
func TestDrawingLifecycleFlow(t *testing.T) {
	db, router := setupDrawingTest(t)
	project := seedProjectWithOwner(t, db)
	drawing := testutil.SeedTestDrawing(t, db, "drawing-00001", project.ID, entity.CategoryStructural, nil, true)
	token := testutil.DefaultTestToken()
	path := "/api/v1/drawings/" + drawing.ID

	// 上传送审
	w := testutil.DoRequest(router, "PUT", path, map[string]interface{}{
		"under_review": true,
		"file_url":     "https://files.local/plan-v1.pdf",
	}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Upload: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	view, lifecycle := drawingField(t, testutil.ParseResponse(w))
	if lifecycle != "under_review" {
		t.Fatalf("Expected under_review, got %s", lifecycle)
	}
	if view["reviewed_date"] == nil {
		t.Error("Expected reviewed_date stamped on upload")
	}

	// 批准
	w = testutil.DoRequest(router, "PUT", path, map[string]interface{}{"is_approved": true}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Approve: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if _, lifecycle = drawingField(t, testutil.ParseResponse(w)); lifecycle != "approved" {
		t.Fatalf("Expected approved, got %s", lifecycle)
	}

	// 出图
	w = testutil.DoRequest(router, "PUT", path, map[string]interface{}{"is_issued": true}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Issue: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	view, lifecycle = drawingField(t, testutil.ParseResponse(w))
	if lifecycle != "issued" || view["issued_date"] == nil {
		t.Fatalf("Expected issued with issued_date, got %s %v", lifecycle, view["issued_date"])
	}

	// 撤图：整体回退到待上传态
	w = testutil.DoRequest(router, "PUT", path, map[string]interface{}{"is_issued": false}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Un-issue: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	view, lifecycle = drawingField(t, testutil.ParseResponse(w))
	if lifecycle != "pending" {
		t.Fatalf("Expected pending after un-issue, got %s", lifecycle)
	}
	if view["file_url"] != nil || view["approved_date"] != nil || view["issued_date"] != nil {
		t.Errorf("Expected full reset, got file_url=%v approved_date=%v issued_date=%v",
			view["file_url"], view["approved_date"], view["issued_date"])
	}
}

// 携带过期版本号的更新返回409，存储状态不被覆盖
func TestUpdateVersionConflict(t *testing.T) {
	db, router := setupDrawingTest(t)
	project := seedProjectWithOwner(t, db)
	drawing := testutil.SeedTestDrawing(t, db, "drawing-00001", project.ID, entity.CategoryStructural, nil, true)
	token := testutil.DefaultTestToken()
	path := "/api/v1/drawings/" + drawing.ID

	w := testutil.DoRequest(router, "PUT", path, map[string]interface{}{
		"name":    "First Writer",
		"version": 0,
	}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("First update: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// 第二个写入者仍然拿着版本0
	w = testutil.DoRequest(router, "PUT", path, map[string]interface{}{
		"name":    "Second Writer",
		"version": 0,
	}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("Stale update: expected 409, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if code, _ := resp["code"].(float64); int(code) != 40900 {
		t.Errorf("Expected code 40900, got %v", resp["code"])
	}

	var current entity.Drawing
	db.First(&current, "id = ?", drawing.ID)
	if current.Name != "First Writer" {
		t.Errorf("Conflicting write must not apply, got name %q", current.Name)
	}
	if current.Version != 1 {
		t.Errorf("Expected version 1 after single update, got %d", current.Version)
	}
}

// 出图激活同类别流水线的下一张，且只激活紧邻的一张
func TestIssueUnlocksNextInSequence(t *testing.T) {
	db, router := setupDrawingTest(t)
	project := seedProjectWithOwner(t, db)
	seq1, seq2, seq3 := 1, 2, 3
	first := testutil.SeedTestDrawing(t, db, "drawing-seq-1", project.ID, entity.CategoryStructural, &seq1, true)
	testutil.SeedTestDrawing(t, db, "drawing-seq-2", project.ID, entity.CategoryStructural, &seq2, false)
	testutil.SeedTestDrawing(t, db, "drawing-seq-3", project.ID, entity.CategoryStructural, &seq3, false)

	w := testutil.DoRequest(router, "PUT", "/api/v1/drawings/"+first.ID,
		map[string]interface{}{"is_issued": true}, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("Issue: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// 解锁是异步的，轮询等待
	deadline := time.Now().Add(3 * time.Second)
	for {
		var next entity.Drawing
		db.First(&next, "id = ?", "drawing-seq-2")
		if next.IsActive {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Expected drawing-seq-2 to be unlocked after issuing seq 1")
		}
		time.Sleep(20 * time.Millisecond)
	}

	var third entity.Drawing
	db.First(&third, "id = ?", "drawing-seq-3")
	if third.IsActive {
		t.Error("Unlock must advance one step only, drawing-seq-3 stayed locked")
	}
}

// 修订 提出→闭环 一个完整周期的历史账目
func TestRevisionRequestAndResolve(t *testing.T) {
	db, router := setupDrawingTest(t)
	project := seedProjectWithOwner(t, db)
	drawing := testutil.SeedTestDrawing(t, db, "drawing-00001", project.ID, entity.CategoryStructural, nil, true)
	token := testutil.DefaultTestToken()
	path := "/api/v1/drawings/" + drawing.ID

	// 先出图
	w := testutil.DoRequest(router, "PUT", path, map[string]interface{}{"is_issued": true}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Issue: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// 提出修订
	w = testutil.DoRequest(router, "PUT", path, map[string]interface{}{
		"has_pending_revision": true,
		"revision_notes":       "column spacing wrong",
		"revision_due_date":    "2025-02-01",
	}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Request revision: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	view, lifecycle := drawingField(t, testutil.ParseResponse(w))
	if lifecycle != "revision_pending" {
		t.Fatalf("Expected revision_pending, got %s", lifecycle)
	}
	if view["is_issued"] != false {
		t.Error("Revision request must force is_issued=false")
	}
	history, _ := view["revision_history"].([]interface{})
	if len(history) != 1 {
		t.Fatalf("Expected 1 history entry, got %v", view["revision_history"])
	}
	cycle := history[0].(map[string]interface{})
	if cycle["revision_notes"] != "column spacing wrong" || cycle["resolved_date"] != nil {
		t.Errorf("Expected open cycle with notes, got %v", cycle)
	}

	// 闭环
	w = testutil.DoRequest(router, "PUT", path, map[string]interface{}{"has_pending_revision": false}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Resolve: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	view, _ = drawingField(t, testutil.ParseResponse(w))
	if count, _ := view["revision_count"].(float64); int(count) != 1 {
		t.Errorf("Expected revision_count=1, got %v", view["revision_count"])
	}
	history, _ = view["revision_history"].([]interface{})
	if len(history) != 1 {
		t.Fatalf("Expected 1 history entry after resolve, got %v", view["revision_history"])
	}
	if history[0].(map[string]interface{})["resolved_date"] == nil {
		t.Error("Expected cycle closed with resolved_date")
	}
}

func TestGetMissingDrawing(t *testing.T) {
	_, router := setupDrawingTest(t)

	w := testutil.DoRequest(router, "GET", "/api/v1/drawings/does-not-exist", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdateRejectsMalformedDate(t *testing.T) {
	db, router := setupDrawingTest(t)
	project := seedProjectWithOwner(t, db)
	drawing := testutil.SeedTestDrawing(t, db, "drawing-00001", project.ID, entity.CategoryStructural, nil, true)

	w := testutil.DoRequest(router, "PUT", "/api/v1/drawings/"+drawing.ID, map[string]interface{}{
		"name":     "Should Not Apply",
		"due_date": "01/06/2025",
	}, testutil.DefaultTestToken())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}

	var current entity.Drawing
	db.First(&current, "id = ?", drawing.ID)
	if current.Name == "Should Not Apply" {
		t.Error("Rejected update must not leave partial state")
	}
}

func TestListDrawingsFilters(t *testing.T) {
	db, router := setupDrawingTest(t)
	project := seedProjectWithOwner(t, db)
	testutil.SeedTestDrawing(t, db, "drawing-00001", project.ID, entity.CategoryStructural, nil, true)
	testutil.SeedTestDrawing(t, db, "drawing-00002", project.ID, entity.CategoryElectrical, nil, true)
	testutil.SeedTestDrawing(t, db, "drawing-00003", project.ID, entity.CategoryElectrical, nil, false)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(router, "GET", "/api/v1/projects/"+project.ID+"/drawings", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	items, _ := dataField(t, testutil.ParseResponse(w))["items"].([]interface{})
	if len(items) != 3 {
		t.Fatalf("Expected 3 drawings, got %d", len(items))
	}

	w = testutil.DoRequest(router, "GET", "/api/v1/projects/"+project.ID+"/drawings?category=electrical&active=true", nil, token)
	items, _ = dataField(t, testutil.ParseResponse(w))["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("Expected 1 active electrical drawing, got %d", len(items))
	}
}

func TestDeleteDrawingHidesIt(t *testing.T) {
	db, router := setupDrawingTest(t)
	project := seedProjectWithOwner(t, db)
	drawing := testutil.SeedTestDrawing(t, db, "drawing-00001", project.ID, entity.CategoryStructural, nil, true)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(router, "DELETE", "/api/v1/drawings/"+drawing.ID, nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(router, "GET", "/api/v1/drawings/"+drawing.ID, nil, token)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 after delete, got %d", w.Code)
	}
}

// 定向出图通知：按调用方名单扇出，每人必有站内信
func TestNotifyIssueFansOutToGivenRecipients(t *testing.T) {
	db, router := setupDrawingTest(t)
	project := seedProjectWithOwner(t, db)
	drawing := testutil.SeedTestDrawing(t, db, "drawing-00001", project.ID, entity.CategoryStructural, nil, true)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(router, "POST", "/api/v1/drawings/"+drawing.ID+"/notify-issue", map[string]interface{}{
		"recipient_ids": []string{"test-user-001", "test-user-002"},
	}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	data := dataField(t, testutil.ParseResponse(w))
	recipients, _ := data["recipients"].([]interface{})
	if len(recipients) != 2 {
		t.Fatalf("Expected 2 recipient results, got %v", data["recipients"])
	}

	var count int64
	db.Model(&entity.Notification{}).Where("event = ?", entity.EventIssued).Count(&count)
	if count != 2 {
		t.Errorf("Expected 2 in-app notifications, got %d", count)
	}
}

func TestNotifyIssueRequiresRecipients(t *testing.T) {
	db, router := setupDrawingTest(t)
	project := seedProjectWithOwner(t, db)
	drawing := testutil.SeedTestDrawing(t, db, "drawing-00001", project.ID, entity.CategoryStructural, nil, true)

	w := testutil.DoRequest(router, "POST", "/api/v1/drawings/"+drawing.ID+"/notify-issue",
		map[string]interface{}{"recipient_ids": []string{}}, testutil.DefaultTestToken())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for empty recipient list, got %d", w.Code)
	}
}

func TestAddAndListComments(t *testing.T) {
	db, router := setupDrawingTest(t)
	project := seedProjectWithOwner(t, db)
	drawing := testutil.SeedTestDrawing(t, db, "drawing-00001", project.ID, entity.CategoryStructural, nil, true)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(router, "POST", "/api/v1/drawings/"+drawing.ID+"/comments",
		map[string]interface{}{"content": "请复核轴网尺寸"}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(router, "GET", "/api/v1/drawings/"+drawing.ID+"/comments", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	items, _ := dataField(t, testutil.ParseResponse(w))["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("Expected 1 comment, got %d", len(items))
	}
	comment := items[0].(map[string]interface{})
	if comment["content"] != "请复核轴网尺寸" || comment["user_id"] != "test-user-001" {
		t.Errorf("Unexpected comment payload: %v", comment)
	}

	var current entity.Drawing
	db.First(&current, "id = ?", drawing.ID)
	if current.CommentCount != 1 {
		t.Errorf("Expected comment_count=1, got %d", current.CommentCount)
	}
}

func TestDrawingEndpointsRequireAuth(t *testing.T) {
	_, router := setupDrawingTest(t)

	w := testutil.DoRequest(router, "GET", "/api/v1/drawings/drawing-00001", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 without token, got %d", w.Code)
	}
}
