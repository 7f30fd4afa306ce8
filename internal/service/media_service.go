package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

const presignExpiry = 15 * time.Minute

// MediaService 车辆照片与附件的对象存储访问。
// 客户端通过预签名URL直传直取，服务端只保管对象名
type MediaService struct {
	minioClient *minio.Client
	bucketName  string
}

func NewMediaService(minioClient *minio.Client, bucketName string) *MediaService {
	return &MediaService{minioClient: minioClient, bucketName: bucketName}
}

// ObjectName 生成按日期分桶的存储路径
func ObjectName(sessionID, fileName string) string {
	return fmt.Sprintf("sessions/%s/%s/%s%s",
		time.Now().Format("2006/01/02"), sessionID, uuid.New().String()[:8], filepath.Ext(fileName))
}

// PresignUpload 生成15分钟有效的上传URL
func (s *MediaService) PresignUpload(ctx context.Context, objectName string) (string, error) {
	if s.minioClient == nil {
		return "", fmt.Errorf("storage not configured")
	}
	u, err := s.minioClient.PresignedPutObject(ctx, s.bucketName, objectName, presignExpiry)
	if err != nil {
		return "", fmt.Errorf("presign upload: %w", err)
	}
	return u.String(), nil
}

// PresignDownload 生成15分钟有效的下载URL
func (s *MediaService) PresignDownload(ctx context.Context, objectName string) (string, error) {
	if s.minioClient == nil {
		return "", fmt.Errorf("storage not configured")
	}
	u, err := s.minioClient.PresignedGetObject(ctx, s.bucketName, objectName, presignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return u.String(), nil
}

// Upload 服务端直传
func (s *MediaService) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	if s.minioClient == nil {
		return fmt.Errorf("storage not configured")
	}
	_, err := s.minioClient.PutObject(ctx, s.bucketName, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload object: %w", err)
	}
	return nil
}

// Exists 检查对象是否已上传
func (s *MediaService) Exists(ctx context.Context, objectName string) (bool, error) {
	if s.minioClient == nil {
		return false, fmt.Errorf("storage not configured")
	}
	_, err := s.minioClient.StatObject(ctx, s.bucketName, objectName, minio.StatObjectOptions{})
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("stat object: %w", err)
	}
	return true, nil
}

// Delete 删除对象
func (s *MediaService) Delete(ctx context.Context, objectName string) error {
	if s.minioClient == nil {
		return fmt.Errorf("storage not configured")
	}
	if err := s.minioClient.RemoveObject(ctx, s.bucketName, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}
