package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/deepaksahajwani/4th-dimension/internal/studio/entity"
	"github.com/deepaksahajwani/4th-dimension/internal/studio/repository"
	"github.com/redis/go-redis/v9"
)

// WhatsAppSender WhatsApp通道发送器
type WhatsAppSender interface {
	SendTemplate(ctx context.Context, phone, templateKey string, variables map[string]string) (messageID string, err error)
}

// SMSSender 短信通道发送器
type SMSSender interface {
	Send(ctx context.Context, phone, body string) (messageID string, err error)
}

// ChannelResult 单个通道的投递结果
type ChannelResult struct {
	Channel   string `json:"channel"`
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RecipientResult 单个接收人的投递结果汇总
type RecipientResult struct {
	UserID   string          `json:"user_id"`
	Channels []ChannelResult `json:"channels"`
}

// FanOutResult 一次事件分发的结构化结果
// 任意接收人任意通道成功即视为整体成功
type FanOutResult struct {
	DrawingID  string            `json:"drawing_id"`
	Event      string            `json:"event"`
	Recipients []RecipientResult `json:"recipients"`
}

// Success 任一通道投递成功
func (r *FanOutResult) Success() bool {
	for _, rec := range r.Recipients {
		for _, ch := range rec.Channels {
			if ch.Success {
				return true
			}
		}
	}
	return false
}

// eventTemplate 事件对应的消息文案与WhatsApp模板
type eventTemplate struct {
	TemplateKey string
	Title       string
	Message     string
}

// eventTemplates 事件→文案映射；TemplateKey为空表示该事件没有
// 已审核通过的WhatsApp模板，直接走短信兜底
var eventTemplates = map[string]eventTemplate{
	entity.EventUpload:            {TemplateKey: "drawing_uploaded", Title: "图纸待审批", Message: "图纸 %s 已上传新版本，等待审批"},
	entity.EventApproved:          {TemplateKey: "drawing_approved", Title: "图纸已批准", Message: "图纸 %s 已通过审批"},
	entity.EventIssued:            {TemplateKey: "drawing_issued", Title: "图纸已出图", Message: "图纸 %s 已正式出图"},
	entity.EventRevisionRequested: {TemplateKey: "drawing_revision", Title: "图纸需修订", Message: "图纸 %s 被提出修订要求"},
	entity.EventRevisionResolved:  {TemplateKey: "", Title: "修订已完成", Message: "图纸 %s 的修订已闭环"},
	entity.EventCommentAdded:      {TemplateKey: "", Title: "图纸新评论", Message: "图纸 %s 有新评论"},
}

// contractorScopedCategories 按类别对口承包商的图纸类型
var contractorScopedCategories = map[string]string{
	entity.CategoryPlumbing:   entity.ContractorTypePlumbing,
	entity.CategoryElectrical: entity.ContractorTypeElectrical,
	entity.CategoryHVAC:       entity.ContractorTypeHVAC,
}

// NotifyService 通知分发服务
// 事件→接收人解析→WhatsApp优先、短信兜底、站内信必达；
// 单个接收人/通道失败只记录，绝不影响其他接收人和触发它的状态迁移
type NotifyService struct {
	whatsapp         WhatsAppSender
	sms              SMSSender
	userRepo         *repository.UserRepository
	projectRepo      *repository.ProjectRepository
	notificationRepo *repository.NotificationRepository
	redisClient      *redis.Client
}

// NewNotifyService 创建通知服务；whatsapp/sms 可为nil（通道未配置时只发站内信）
func NewNotifyService(whatsapp WhatsAppSender, sms SMSSender, userRepo *repository.UserRepository, projectRepo *repository.ProjectRepository, notificationRepo *repository.NotificationRepository, redisClient *redis.Client) *NotifyService {
	return &NotifyService{
		whatsapp:         whatsapp,
		sms:              sms,
		userRepo:         userRepo,
		projectRepo:      projectRepo,
		notificationRepo: notificationRepo,
		redisClient:      redisClient,
	}
}

// DispatchDrawingEvent 按角色规则解析接收人并逐一分发
func (s *NotifyService) DispatchDrawingEvent(ctx context.Context, drawing *entity.Drawing, event, actorID string) *FanOutResult {
	recipients, err := s.resolveRecipients(ctx, drawing, event, actorID)
	if err != nil {
		log.Printf("[NotifyService] 解析接收人失败 (drawing=%s event=%s): %v", drawing.ID, event, err)
		return &FanOutResult{DrawingID: drawing.ID, Event: event}
	}
	return s.dispatch(ctx, drawing, event, recipients)
}

// DispatchToRecipients 向调用方指定的接收人列表分发，跳过自动解析
func (s *NotifyService) DispatchToRecipients(ctx context.Context, drawing *entity.Drawing, event string, recipientIDs []string) *FanOutResult {
	return s.dispatch(ctx, drawing, event, recipientIDs)
}

// resolveRecipients 事件→接收人的角色映射
func (s *NotifyService) resolveRecipients(ctx context.Context, drawing *entity.Drawing, event, actorID string) ([]string, error) {
	participants, err := s.projectRepo.ResolveParticipants(ctx, drawing.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("解析项目参与方失败: %w", err)
	}

	seen := map[string]bool{}
	var recipients []string
	add := func(userID string) {
		if userID == "" || seen[userID] {
			return
		}
		seen[userID] = true
		recipients = append(recipients, userID)
	}

	switch event {
	case entity.EventUpload, entity.EventApprovalNeeded:
		// 上传/待审批：老板把关；对口承包商的图纸同时抄送承包商
		add(participants.OwnerID)
		s.addCategoryContractor(ctx, drawing, participants, add)
		if drawing.AssignedToID != nil {
			add(*drawing.AssignedToID)
		}
	case entity.EventApproved, entity.EventIssued:
		// 批准/出图：通知负责的组长；出图同时下达给对口承包商
		add(participants.TeamLeaderID)
		if event == entity.EventIssued {
			s.addCategoryContractor(ctx, drawing, participants, add)
		}
	case entity.EventRevisionRequested, entity.EventRevisionResolved:
		add(participants.TeamLeaderID)
	case entity.EventCommentAdded:
		// 评论：组长和老板，发表人自己除外
		add(participants.TeamLeaderID)
		add(participants.OwnerID)
	}

	// 触发人不给自己发通知
	filtered := recipients[:0]
	for _, id := range recipients {
		if id != actorID {
			filtered = append(filtered, id)
		}
	}
	return filtered, nil
}

// addCategoryContractor 按图纸类别找对口承包商
func (s *NotifyService) addCategoryContractor(ctx context.Context, drawing *entity.Drawing, participants *entity.Participants, add func(string)) {
	contractorType, ok := contractorScopedCategories[drawing.Category]
	if !ok {
		return
	}
	for _, c := range participants.Contractors {
		if c.ContractorType == contractorType {
			add(c.UserID)
		}
	}
}

// dispatch 对每个接收人独立投递，互不阻断
func (s *NotifyService) dispatch(ctx context.Context, drawing *entity.Drawing, event string, recipientIDs []string) *FanOutResult {
	result := &FanOutResult{DrawingID: drawing.ID, Event: event}
	if len(recipientIDs) == 0 {
		return result
	}

	tmpl, ok := eventTemplates[event]
	if !ok {
		tmpl = eventTemplate{Title: "图纸动态", Message: "图纸 %s 有新动态"}
	}
	message := fmt.Sprintf(tmpl.Message, drawing.Name)
	link := fmt.Sprintf("/projects/%s/drawings/%s", drawing.ProjectID, drawing.ID)

	users := map[string]*entity.User{}
	if found, err := s.userRepo.FindByIDs(ctx, recipientIDs); err != nil {
		log.Printf("[NotifyService] 查找接收人失败 (drawing=%s event=%s): %v", drawing.ID, event, err)
	} else {
		for i := range found {
			users[found[i].ID] = &found[i]
		}
	}

	for _, userID := range recipientIDs {
		if s.alreadyDispatched(ctx, drawing.ID, event, userID) {
			continue
		}
		rec := s.dispatchToRecipient(ctx, drawing, event, users[userID], userID, tmpl, message, link)
		result.Recipients = append(result.Recipients, rec)
	}

	log.Printf("[NotifyService] 事件分发完成 drawing=%s event=%s recipients=%d success=%v", drawing.ID, event, len(result.Recipients), result.Success())
	return result
}

// alreadyDispatched 短窗口去重，同一事件不给同一人重复推送
func (s *NotifyService) alreadyDispatched(ctx context.Context, drawingID, event, userID string) bool {
	if s.redisClient == nil {
		return false
	}
	key := fmt.Sprintf("notify:dedupe:%s:%s:%s", drawingID, event, userID)
	ok, err := s.redisClient.SetNX(ctx, key, 1, 2*time.Minute).Result()
	if err != nil {
		// 去重失效宁可重发，不能漏发
		return false
	}
	return !ok
}

// dispatchToRecipient 单人投递：WhatsApp优先→短信兜底→站内信必达
func (s *NotifyService) dispatchToRecipient(ctx context.Context, drawing *entity.Drawing, event string, user *entity.User, userID string, tmpl eventTemplate, message, link string) RecipientResult {
	rec := RecipientResult{UserID: userID}
	record := func(ch ChannelResult) {
		rec.Channels = append(rec.Channels, ch)
		dispatch := &entity.NotificationDispatch{
			ID:          generateID(),
			DrawingID:   drawing.ID,
			ProjectID:   drawing.ProjectID,
			RecipientID: userID,
			Event:       event,
			Channel:     ch.Channel,
			Success:     ch.Success,
			MessageID:   ch.MessageID,
			Error:       ch.Error,
		}
		if err := s.notificationRepo.RecordDispatch(ctx, dispatch); err != nil {
			log.Printf("[NotifyService] 记录投递结果失败 (recipient=%s channel=%s): %v", userID, ch.Channel, err)
		}
	}

	phone := ""
	if user != nil {
		phone = user.Mobile
	}

	phoneDelivered := false
	if s.whatsapp != nil && phone != "" && tmpl.TemplateKey != "" {
		callCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		msgID, err := s.whatsapp.SendTemplate(callCtx, phone, tmpl.TemplateKey, map[string]string{
			"drawing_name": drawing.Name,
			"link":         link,
		})
		cancel()
		if err != nil {
			log.Printf("[NotifyService] WhatsApp发送失败 (recipient=%s phone=%s): %v", userID, phone, err)
			record(ChannelResult{Channel: entity.ChannelWhatsApp, Error: err.Error()})
		} else {
			record(ChannelResult{Channel: entity.ChannelWhatsApp, Success: true, MessageID: msgID})
			phoneDelivered = true
		}
	}

	if !phoneDelivered && s.sms != nil && phone != "" {
		callCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		msgID, err := s.sms.Send(callCtx, phone, message)
		cancel()
		if err != nil {
			log.Printf("[NotifyService] 短信发送失败 (recipient=%s phone=%s): %v", userID, phone, err)
			record(ChannelResult{Channel: entity.ChannelSMS, Error: err.Error()})
		} else {
			record(ChannelResult{Channel: entity.ChannelSMS, Success: true, MessageID: msgID})
		}
	}

	// 站内信不依赖手机通道结果，始终尝试
	notification := &entity.Notification{
		ID:        generateID(),
		UserID:    userID,
		ProjectID: drawing.ProjectID,
		Title:     tmpl.Title,
		Message:   message,
		Link:      link,
		Event:     event,
	}
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		log.Printf("[NotifyService] 创建站内信失败 (recipient=%s): %v", userID, err)
		record(ChannelResult{Channel: entity.ChannelInApp, Error: err.Error()})
	} else {
		record(ChannelResult{Channel: entity.ChannelInApp, Success: true, MessageID: notification.ID})
	}

	return rec
}

// ListNotifications 查询用户站内信
func (s *NotifyService) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	return s.notificationRepo.ListByUser(ctx, userID, unreadOnly, limit)
}

// MarkNotificationRead 标记站内信已读
func (s *NotifyService) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	return s.notificationRepo.MarkRead(ctx, userID, notificationID)
}
