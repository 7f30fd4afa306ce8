package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/garage-erp/internal/config"
	"github.com/bitfantasy/garage-erp/internal/entity"
	"github.com/bitfantasy/garage-erp/internal/handler"
	"github.com/bitfantasy/garage-erp/internal/middleware"
	"github.com/bitfantasy/garage-erp/internal/notify"
	"github.com/bitfantasy/garage-erp/internal/repository"
	"github.com/bitfantasy/garage-erp/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting garage-erp service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := migrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化依赖
	hub := notify.NewHub()
	notifier := notify.NewWebhookNotifier(cfg.Notify.WebhookURL, hub, zapLogger)
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, rdb, notifier, cfg)
	handlers := handler.NewHandlers(services, hub)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())

	// 注册路由
	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	// TranslateError 把驱动的唯一约束冲突翻译成 gorm.ErrDuplicatedKey，
	// 编号分配的撞号重试依赖这一点
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.Client{},
		&entity.ClientVehicle{},
		&entity.GarageSession{},
		&entity.CustomerRequest{},
		&entity.Inspection{},
		&entity.TestDrive{},
		&entity.SessionPhoto{},
		&entity.JobCard{},
		&entity.JobCardItem{},
		&entity.JobCardComment{},
		&entity.JobCardTimeEntry{},
		&entity.JobCardPart{},
		&entity.InventoryItem{},
		&entity.StockMovement{},
	)
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 需要认证的接口
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			// 事件流
			authorized.GET("/events/stream", h.Events.Stream)

			// 客户与车辆
			clients := authorized.Group("/clients")
			{
				clients.GET("", h.Client.List)
				clients.POST("", h.Client.Create)
				clients.GET("/:id", h.Client.Get)
				clients.PUT("/:id", h.Client.Update)
				clients.GET("/:id/vehicles", h.Client.ListVehicles)
			}
			authorized.POST("/vehicles", h.Client.CreateVehicle)
			authorized.GET("/vehicles/:id", h.Client.GetVehicle)

			// 服务会话
			sessions := authorized.Group("/sessions")
			{
				sessions.GET("", h.Session.List)
				sessions.POST("", h.Session.Create)
				sessions.GET("/:id", h.Session.Get)
				sessions.PUT("/:id/status", h.Session.AdvanceStatus)
				sessions.POST("/:id/checkout", h.Session.CheckOut)
				sessions.DELETE("/:id", h.Session.Delete)

				// 子阶段
				sessions.POST("/:id/customer-request", h.Session.CreateCustomerRequest)
				sessions.PUT("/:id/customer-request", h.Session.UpdateCustomerRequest)
				sessions.POST("/:id/inspection", h.Session.CreateInspection)
				sessions.PUT("/:id/inspection", h.Session.UpdateInspection)
				sessions.POST("/:id/test-drive", h.Session.CreateTestDrive)
				sessions.PUT("/:id/test-drive", h.Session.UpdateTestDrive)

				// 照片
				sessions.POST("/:id/photos", h.Session.AddPhoto)
				sessions.POST("/:id/photos/presign", h.Media.PresignUpload)
				sessions.POST("/:id/photos/confirm", h.Media.ConfirmUpload)
			}

			// 媒体
			authorized.GET("/media/download-url", h.Media.PresignDownload)
			authorized.DELETE("/media", h.Media.Delete)

			// 维修工单
			jobcards := authorized.Group("/job-cards")
			{
				jobcards.GET("", h.JobCard.List)
				jobcards.POST("", h.JobCard.Create)
				jobcards.GET("/:id", h.JobCard.Get)
				jobcards.GET("/:id/summary", h.JobCard.Summary)
				jobcards.POST("/:id/approve", h.JobCard.Approve)
				jobcards.POST("/:id/authorize", h.JobCard.Authorize)
				jobcards.POST("/:id/start", h.JobCard.StartWork)
				jobcards.POST("/:id/wait-parts", h.JobCard.WaitParts)
				jobcards.POST("/:id/resume", h.JobCard.ResumeWork)
				jobcards.POST("/:id/quality-check", h.JobCard.QualityCheck)
				jobcards.POST("/:id/complete", h.JobCard.Complete)

				// 工单项
				jobcards.POST("/:id/items", h.JobCard.AddItem)
				jobcards.POST("/:id/items/:itemId/start", h.JobCard.StartItem)
				jobcards.POST("/:id/items/:itemId/complete", h.JobCard.CompleteItem)
				jobcards.POST("/:id/items/:itemId/quality-check", h.JobCard.QualityCheckItem)

				// 评论
				jobcards.GET("/:id/comments", h.JobCard.ListComments)
				jobcards.POST("/:id/comments", h.JobCard.AddComment)
				jobcards.DELETE("/:id/comments/:commentId", h.JobCard.DeleteComment)

				// 工时
				jobcards.GET("/:id/time-entries", h.JobCard.ListTimeEntries)
				jobcards.POST("/:id/time-entries", h.JobCard.StartTimer)
				jobcards.POST("/:id/time-entries/:entryId/stop", h.JobCard.StopTimer)
				jobcards.PUT("/:id/time-entries/:entryId/break", h.JobCard.SetBreak)
				jobcards.GET("/:id/labor-cost", h.JobCard.LaborCost)

				// 配件
				jobcards.POST("/:id/parts", h.JobCard.AddPart)
				jobcards.PUT("/:id/parts/:partId", h.JobCard.UpdatePart)
				jobcards.DELETE("/:id/parts/:partId", h.JobCard.DeletePart)
			}

			// 库存
			inventory := authorized.Group("/inventory")
			{
				inventory.GET("/items", h.Inventory.ListItems)
				inventory.POST("/items", h.Inventory.CreateItem)
				inventory.GET("/items/:id", h.Inventory.GetItem)
				inventory.PUT("/items/:id", h.Inventory.UpdateItem)
				inventory.POST("/items/:id/adjust", h.Inventory.Adjust)
				inventory.POST("/items/:id/restock", h.Inventory.Restock)
				inventory.GET("/items/:id/ledger.xlsx", h.Inventory.ExportLedger)
				inventory.GET("/low-stock", h.Inventory.LowStock)
				inventory.GET("/stats", h.Inventory.Stats)
				inventory.GET("/movements", h.Inventory.ListMovements)
			}
		}
	}
}
