package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/deepaksahajwani/4th-dimension/internal/studio/entity"
	"github.com/deepaksahajwani/4th-dimension/internal/studio/repository"
)

// DrawingService 图纸服务 —— 状态机迁移、流水线解锁与通知分发的编排层
type DrawingService struct {
	drawingRepo *repository.DrawingRepository
	projectRepo *repository.ProjectRepository
	commentRepo *repository.CommentRepository
	notifySvc   *NotifyService
}

// NewDrawingService 创建图纸服务
func NewDrawingService(drawingRepo *repository.DrawingRepository, projectRepo *repository.ProjectRepository, commentRepo *repository.CommentRepository, notifySvc *NotifyService) *DrawingService {
	return &DrawingService{
		drawingRepo: drawingRepo,
		projectRepo: projectRepo,
		commentRepo: commentRepo,
		notifySvc:   notifySvc,
	}
}

// CreateDrawingRequest 新建图纸载荷
type CreateDrawingRequest struct {
	Category       string  `json:"category" binding:"required"`
	Name           string  `json:"name" binding:"required"`
	DueDate        *string `json:"due_date"`
	AssignedToID   *string `json:"assigned_to_id"`
	SequenceNumber *int    `json:"sequence_number"`
	IsActive       *bool   `json:"is_active"`
}

// CreateDrawing 在项目下新建一张图纸
func (s *DrawingService) CreateDrawing(ctx context.Context, projectID, operatorID string, req *CreateDrawingRequest) (*entity.Drawing, error) {
	if !entity.ValidCategory(req.Category) {
		return nil, &ValidationError{Message: fmt.Sprintf("未知的图纸类别: %q", req.Category)}
	}
	if _, err := s.projectRepo.FindByID(ctx, projectID); err != nil {
		return nil, fmt.Errorf("查找项目失败: %w", err)
	}

	drawing := &entity.Drawing{
		ID:        generateID(),
		ProjectID: projectID,
		Category:  req.Category,
		Name:      req.Name,
		IsActive:  true,
		CreatedBy: operatorID,
	}
	if req.DueDate != nil && *req.DueDate != "" {
		t, err := parseDate("due_date", *req.DueDate)
		if err != nil {
			return nil, err
		}
		drawing.DueDate = t
	}
	drawing.AssignedToID = req.AssignedToID
	drawing.SequenceNumber = req.SequenceNumber
	if req.IsActive != nil {
		drawing.IsActive = *req.IsActive
	}

	if err := s.drawingRepo.Create(ctx, drawing); err != nil {
		return nil, fmt.Errorf("创建图纸失败: %w", err)
	}
	return drawing, nil
}

// GetDrawing 查询单张图纸
func (s *DrawingService) GetDrawing(ctx context.Context, id string) (*entity.Drawing, error) {
	return s.drawingRepo.FindByID(ctx, id)
}

// ListDrawings 按项目列出图纸
func (s *DrawingService) ListDrawings(ctx context.Context, projectID string, filter repository.ListFilter) ([]*entity.Drawing, error) {
	return s.drawingRepo.ListByProject(ctx, projectID, filter)
}

// UpdateDrawing 对图纸执行一次状态机迁移
// 读取→套用规则→带版本号落库；版本不匹配返回 repository.ErrConflict，
// 落库成功后异步解锁流水线下一张并分发通知
func (s *DrawingService) UpdateDrawing(ctx context.Context, id, operatorID string, req *UpdateDrawingRequest) (*entity.Drawing, error) {
	drawing, err := s.drawingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("查找图纸失败: %w", err)
	}

	expectedVersion := drawing.Version
	if req.Version != nil {
		expectedVersion = *req.Version
	}

	now := time.Now()
	res, err := applyDrawingUpdate(drawing, req, now)
	if err != nil {
		return nil, err
	}
	if len(res.patch) == 0 {
		return drawing, nil
	}

	if err := s.drawingRepo.Update(ctx, id, expectedVersion, res.patch); err != nil {
		return nil, err
	}
	drawing.Version = expectedVersion + 1

	// 出图成功后解锁同类别流水线中的下一张（不阻断主流程）
	if res.unlockSequence && drawing.SequenceNumber != nil {
		go s.unlockNextInSequence(context.Background(), drawing)
	}

	// 异步分发通知，单个事件失败不影响本次更新
	if s.notifySvc != nil {
		for _, event := range res.events {
			go s.notifySvc.DispatchDrawingEvent(context.Background(), drawing, event, operatorID)
		}
	}

	return drawing, nil
}

// unlockNextInSequence 出图后把同项目同类别的下一序号图纸置为活跃
// 找不到下一张属于正常情况（流水线末尾）
func (s *DrawingService) unlockNextInSequence(ctx context.Context, issued *entity.Drawing) {
	next, err := s.drawingRepo.FindNextInSequence(ctx, issued.ProjectID, issued.Category, *issued.SequenceNumber)
	if err != nil {
		log.Printf("[DrawingService] 查找流水线下一张失败 (drawing=%s): %v", issued.ID, err)
		return
	}
	if next == nil || next.IsActive {
		return
	}
	patch := map[string]interface{}{
		"is_active":  true,
		"updated_at": time.Now(),
	}
	if err := s.drawingRepo.Update(ctx, next.ID, next.Version, patch); err != nil {
		log.Printf("[DrawingService] 解锁流水线图纸失败 (drawing=%s): %v", next.ID, err)
		return
	}
	log.Printf("[DrawingService] 流水线解锁 project=%s category=%s seq=%d", issued.ProjectID, issued.Category, *next.SequenceNumber)
}

// DeleteDrawing 软删除图纸
func (s *DrawingService) DeleteDrawing(ctx context.Context, id string) error {
	if err := s.drawingRepo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("删除图纸失败: %w", err)
	}
	return nil
}

// AddCommentRequest 图纸评论载荷
type AddCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// AddComment 在图纸下留言并通知相关参与方
func (s *DrawingService) AddComment(ctx context.Context, drawingID, authorID string, req *AddCommentRequest) (*entity.DrawingComment, error) {
	drawing, err := s.drawingRepo.FindByID(ctx, drawingID)
	if err != nil {
		return nil, fmt.Errorf("查找图纸失败: %w", err)
	}

	comment := &entity.DrawingComment{
		ID:        generateID(),
		DrawingID: drawingID,
		ProjectID: drawing.ProjectID,
		UserID:    authorID,
		Content:   req.Content,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("创建评论失败: %w", err)
	}
	if err := s.drawingRepo.IncrementCommentCounters(ctx, drawingID, 1); err != nil {
		log.Printf("[DrawingService] 更新评论计数失败 (drawing=%s): %v", drawingID, err)
	}

	if s.notifySvc != nil {
		go s.notifySvc.DispatchDrawingEvent(context.Background(), drawing, entity.EventCommentAdded, authorID)
	}
	return comment, nil
}

// ListComments 按时间顺序列出图纸评论
func (s *DrawingService) ListComments(ctx context.Context, drawingID string) ([]*entity.DrawingComment, error) {
	return s.commentRepo.ListByDrawing(ctx, drawingID)
}
