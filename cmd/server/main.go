package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"project-tracker/config"
	"project-tracker/internal/api/handler"
	"project-tracker/internal/api/router"
	"project-tracker/internal/auth"
	"project-tracker/internal/realtime"
	"project-tracker/internal/repository"
	"project-tracker/internal/service"
	"project-tracker/pkg/database"
	"project-tracker/pkg/jwt"
	applogger "project-tracker/pkg/logger"
	"project-tracker/pkg/metrics"
	"project-tracker/pkg/redis"
	"project-tracker/pkg/storage"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 连接 Redis（可选：失败时不持久化会话、不支持吊销）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，会话持久化与 Token 吊销不可用", zap.Error(err))
		rdb = nil
	}

	// 4. 后端地址：持久化的客户端状态优先，其次为配置
	endpoint, credential := cfg.Backend.URL, cfg.Backend.Key
	if rdb != nil {
		if st, err := rdb.LoadClientState(ctx); err != nil {
			logger.Warn("读取客户端状态失败，使用配置中的后端地址", zap.Error(err))
		} else {
			if st.Endpoint != "" {
				endpoint = st.Endpoint
			}
			if st.Credential != "" {
				credential = st.Credential
			}
		}
	}
	dsn := config.ComposeDSN(endpoint, credential)

	// 5. 依赖注入: Repository → Service → Handler
	var (
		repo     *repository.Repository
		provider auth.Provider
		feed     realtime.Feed
		uploader storage.Uploader
		closeDB  func()
	)

	if dsn == "" {
		logger.Warn("未配置后端地址，以未连接模式运行")
	} else {
		db, err := database.NewDB(dsn, &cfg.Backend, cfg.Log.Level, logger)
		if err != nil {
			logger.Fatal("数据库连接失败", zap.Error(err))
		}
		sqlDB, err := db.DB()
		if err != nil {
			logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
		}
		if err := database.RunMigrations(sqlDB, logger); err != nil {
			logger.Fatal("数据库迁移失败", zap.Error(err))
		}
		closeDB = func() { _ = sqlDB.Close() }

		repo = repository.NewRepository(db)

		var tokens auth.TokenStore
		if rdb != nil {
			tokens = rdb
		}
		provider = auth.NewProvider(repo.Account, jwt.NewManager(&cfg.Auth), tokens, cfg.Auth.RequireConfirmation, logger.Named("auth"))

		if cfg.Realtime.Enabled {
			feed = realtime.NewPGFeed(dsn, &cfg.Realtime, logger.Named("pgfeed"))
		}
	}

	if cfg.Storage.Bucket != "" && repo != nil {
		s3Store, err := storage.NewS3Store(ctx, &cfg.Storage)
		if err != nil {
			logger.Warn("对象存储初始化失败，附件上传不可用", zap.Error(err))
		} else {
			uploader = s3Store
		}
	}

	svc := service.NewService(repo, provider, feed, uploader, logger)
	h := handler.NewHandler(svc)

	// 6. 会话事件循环 + 恢复上次会话
	sessionDone := make(chan struct{})
	go func() {
		defer close(sessionDone)
		svc.Session.Run(ctx)
	}()
	if provider != nil {
		if _, err := svc.Session.Restore(ctx); err != nil && !errors.Is(err, auth.ErrNoSession) {
			logger.Warn("恢复会话失败", zap.Error(err))
		}
	}

	// 7. 初始化路由
	engine := router.Setup(cfg, h, svc.Session, svc.Connected, rdb, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 等待系统信号
	<-ctx.Done()
	logger.Info("收到关闭信号，开始优雅关闭...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 等待会话循环退出：进行中的登录流水线结束后才会停止实时订阅
	select {
	case <-sessionDone:
	case <-shutdownCtx.Done():
		logger.Warn("等待会话循环退出超时")
	}
	svc.Reconciler.Stop()

	if closeDB != nil {
		closeDB()
	}
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
