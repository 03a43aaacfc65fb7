package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// UploadService 图纸文件上传服务 —— 对象存储封装
type UploadService struct {
	minioClient *minio.Client
	bucket      string
	publicBase  string
}

// NewUploadService 创建上传服务；minioClient为nil时上传接口直接报错
func NewUploadService(minioClient *minio.Client, bucket, publicBase string) *UploadService {
	return &UploadService{
		minioClient: minioClient,
		bucket:      bucket,
		publicBase:  publicBase,
	}
}

// UploadedFile 上传结果
type UploadedFile struct {
	URL         string `json:"url"`
	ObjectName  string `json:"object_name"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Upload 上传图纸文件到对象存储，按日期分目录
func (s *UploadService) Upload(ctx context.Context, projectID string, reader io.Reader, filename string, size int64, contentType string) (*UploadedFile, error) {
	if s.minioClient == nil {
		return nil, fmt.Errorf("对象存储未配置")
	}

	objectName := fmt.Sprintf("drawings/%s/%s/%s%s",
		projectID, time.Now().Format("2006/01/02"), uuid.New().String()[:8], filepath.Ext(filename))

	if _, err := s.minioClient.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return nil, fmt.Errorf("上传文件失败: %w", err)
	}

	return &UploadedFile{
		URL:         fmt.Sprintf("%s/%s/%s", s.publicBase, s.bucket, objectName),
		ObjectName:  objectName,
		Filename:    filename,
		Size:        size,
		ContentType: contentType,
	}, nil
}

// PresignedURL 生成限时下载链接
func (s *UploadService) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	if s.minioClient == nil {
		return "", fmt.Errorf("对象存储未配置")
	}
	u, err := s.minioClient.PresignedGetObject(ctx, s.bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("生成下载链接失败: %w", err)
	}
	return u.String(), nil
}
