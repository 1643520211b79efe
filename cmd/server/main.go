package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ziyi127/SCS/config"
	"github.com/ziyi127/SCS/internal/api/handler"
	"github.com/ziyi127/SCS/internal/api/router"
	"github.com/ziyi127/SCS/internal/repository"
	"github.com/ziyi127/SCS/internal/scheduler"
	"github.com/ziyi127/SCS/internal/service"
	"github.com/ziyi127/SCS/pkg/database"
	applogger "github.com/ziyi127/SCS/pkg/logger"
	"github.com/ziyi127/SCS/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（默认 ./config/config.yaml）")
	flag.Parse()

	// 0. .env 中的 SCS_* 变量，文件不存在时忽略
	_ = godotenv.Load()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
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
		zap.String("addr", cfg.Server.Addr()),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 存储：file 驱动不需要数据库
	var db *gorm.DB
	if cfg.Storage.Driver != config.StorageFile {
		db, err = database.NewDB(cfg.Storage.Driver, &cfg.Database, cfg.Log.Level, logger)
		if err != nil {
			logger.Fatal("数据库连接失败", zap.Error(err))
		}
		sqlDB, err := db.DB()
		if err != nil {
			logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
		}
		if err := database.RunMigrations(sqlDB, cfg.Storage.Driver, logger); err != nil {
			logger.Fatal("数据库迁移失败", zap.Error(err))
		}
		logger.Info("数据库就绪")
	}

	// 4. 连接 Redis（可选：连接失败时降级为内存天气缓存）
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，天气缓存仅保存在内存中", zap.Error(err))
			rdb = nil
		}
	}

	// 5. 依赖注入: Repository → Service → Handler
	repo, err := repository.NewRepository(&cfg.Storage, db)
	if err != nil {
		logger.Fatal("初始化存储失败", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := service.NewService(ctx, cfg, repo, rdb, logger)
	if err != nil {
		logger.Fatal("初始化服务失败", zap.Error(err))
	}
	h := handler.NewHandler(svc)

	// 6. 启动时先取一次天气，之后由定时任务刷新
	go svc.Weather.Refresh(ctx)

	loc, _ := cfg.Reminder.Location()
	sched := scheduler.New(scheduler.Options{
		TickSpec:    cfg.Reminder.TickCron,
		RefreshSpec: cfg.Weather.RefreshCron,
		Location:    loc,
	}, svc.Reminder, svc.Weather, logger.Named("scheduler"))
	if err := sched.Start(ctx); err != nil {
		logger.Fatal("启动定时任务失败", zap.Error(err))
	}

	// 7. 初始化路由
	engine := router.Setup(cfg, h, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	// 提醒推送为 SSE 长连接，不设置 WriteTimeout；收到信号后请求上下文随之取消
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           engine,
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 等待系统信号，优雅关闭
	<-ctx.Done()
	logger.Info("收到关闭信号，开始优雅关闭...")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	if db != nil {
		if closeDB, _ := db.DB(); closeDB != nil {
			closeDB.Close()
		}
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
