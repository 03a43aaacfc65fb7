package service

import (
	"log"

	"github.com/google/uuid"

	"github.com/deepaksahajwani/4th-dimension/internal/config"
	"github.com/deepaksahajwani/4th-dimension/internal/shared/mailer"
	"github.com/deepaksahajwani/4th-dimension/internal/shared/sms"
	"github.com/deepaksahajwani/4th-dimension/internal/shared/whatsapp"
	"github.com/deepaksahajwani/4th-dimension/internal/studio/repository"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
)

// generateID 生成32位实体ID
func generateID() string {
	return uuid.New().String()[:32]
}

// Services 服务集合
type Services struct {
	Auth    *AuthService
	Project *ProjectService
	Drawing *DrawingService
	Notify  *NotifyService
	Upload  *UploadService
}

// NewServices 创建服务集合 —— 进程启动时装配一次，全程显式传递
func NewServices(repos *repository.Repositories, rdb *redis.Client, cfg *config.Config) *Services {
	// WhatsApp/短信通道未配置时保持nil，通知降级为仅站内信
	var waSender WhatsAppSender
	if cfg.WhatsApp.AccessToken != "" {
		waSender = whatsapp.NewClient(cfg.WhatsApp.BaseURL, cfg.WhatsApp.PhoneNumberID, cfg.WhatsApp.AccessToken)
	}
	var smsSender SMSSender
	if cfg.SMS.APIKey != "" {
		smsSender = sms.NewClient(cfg.SMS.BaseURL, cfg.SMS.APIKey, cfg.SMS.SenderID)
	}

	// 初始化MinIO客户端
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			log.Printf("[Services] MinIO初始化失败: %v", err)
			minioClient = nil
		}
	}

	var mail *mailer.Mailer
	if cfg.SMTP.Host != "" {
		mail = mailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	}

	notifySvc := NewNotifyService(waSender, smsSender, repos.User, repos.Project, repos.Notification, rdb)

	return &Services{
		Auth:    NewAuthService(repos.User, rdb, cfg),
		Project: NewProjectService(repos.Project, repos.Drawing, repos.User, mail),
		Drawing: NewDrawingService(repos.Drawing, repos.Project, repos.Comment, notifySvc),
		Notify:  notifySvc,
		Upload:  NewUploadService(minioClient, cfg.MinIO.Bucket, cfg.MinIO.PublicBase),
	}
}
