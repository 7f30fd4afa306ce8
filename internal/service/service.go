package service

import (
	"github.com/bitfantasy/garage-erp/internal/config"
	"github.com/bitfantasy/garage-erp/internal/notify"
	"github.com/bitfantasy/garage-erp/internal/repository"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services 服务集合
type Services struct {
	Session      *SessionService
	JobCard      *JobCardService
	TimeTracking *TimeTrackingService
	Stock        *StockService
	Client       *ClientService
	Media        *MediaService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, db *gorm.DB, rdb *redis.Client,
	notifier notify.Notifier, cfg *config.Config) *Services {
	// 初始化MinIO客户端
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			minioClient = nil
		}
	}

	stock := NewStockService(repos.Inventory, db, rdb, notifier)
	return &Services{
		Session:      NewSessionService(repos.Session, repos.Client, db, notifier),
		JobCard:      NewJobCardService(repos.JobCard, repos.Session, stock, db, notifier),
		TimeTracking: NewTimeTrackingService(repos.JobCard, db),
		Stock:        stock,
		Client:       NewClientService(repos.Client),
		Media:        NewMediaService(minioClient, cfg.MinIO.Bucket),
	}
}
