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
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dee-sakwe/course-reg-system-dsa/config"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/api/handler"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/api/router"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/catalog"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/job"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/repository"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/service"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/upstream"
	"github.com/dee-sakwe/course-reg-system-dsa/pkg/database"
	"github.com/dee-sakwe/course-reg-system-dsa/pkg/jwt"
	applogger "github.com/dee-sakwe/course-reg-system-dsa/pkg/logger"
	"github.com/dee-sakwe/course-reg-system-dsa/pkg/redis"
)

// snapshotRetention 持久化快照的保留时长，远长于缓存新鲜期，重启后可直接恢复
const snapshotRetention = 24 * time.Hour

func main() {
	// 0. 加载 .env（不存在时忽略）
	_ = godotenv.Load()

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
		zap.String("upstream", cfg.Upstream.BaseURL),
		zap.String("snapshot_store", cfg.Catalog.SnapshotStore),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接 Redis（可选：连接失败时降级为进程内锁与内存快照）
	var rdb *redis.Client
	if cfg.Catalog.SnapshotStore != config.SnapshotStoreMemory {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，选课锁降级为进程内实现", zap.Error(err))
			rdb = nil
		}
	}

	// 4. 目录快照存储
	health := make(map[string]router.HealthChecker)
	var (
		db     *gorm.DB
		purger job.SnapshotPurger
		store  catalog.SnapshotStore = catalog.NewMemoryStore()
	)
	switch cfg.Catalog.SnapshotStore {
	case config.SnapshotStoreRedis:
		if rdb != nil {
			store = catalog.NewPersistentStore(rdb, cfg.Catalog.SnapshotKey, snapshotRetention)
		}
	case config.SnapshotStoreDatabase:
		db, err = openDatabase(cfg, logger)
		if err != nil {
			logger.Warn("数据库不可用，目录快照降级为内存存储", zap.Error(err))
			break
		}
		repo := repository.NewRepository(db)
		store = catalog.NewPersistentStore(repo.SessionSnapshot, cfg.Catalog.SnapshotKey, snapshotRetention)
		purger = repo.SessionSnapshot
		if sqlDB, err := db.DB(); err == nil {
			health["database"] = router.PingFunc(sqlDB.PingContext)
		}
	}

	// 5. 选课锁与限流
	locker := service.NewLocalLocker()
	deps := router.Deps{Health: health}
	if rdb != nil {
		locker = service.NewRedisLocker(rdb)
		deps.Limiter = rdb
		health["redis"] = rdb
	}

	// 6. 依赖注入: Upstream → Catalog → Service → Handler
	up := upstream.NewClient(&cfg.Upstream, logger)
	cache := catalog.NewCache(up, logger,
		catalog.WithTTL(cfg.Catalog.TTL),
		catalog.WithFetchTimeout(cfg.Upstream.Timeout),
		catalog.WithStore(store),
	)
	svc := service.NewService(cfg, up, cache, locker, logger)
	h := handler.NewHandler(svc)
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 7. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, deps, logger)

	// 8. 目录预热（可选）
	var warmer *job.CatalogWarmer
	if cfg.Catalog.WarmInterval > 0 {
		warmer, err = job.NewCatalogWarmer(cache, purger, cfg.Catalog.WarmInterval, logger)
		if err != nil {
			logger.Fatal("初始化目录预热失败", zap.Error(err))
		}
		warmer.Start()
	}

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if warmer != nil {
		if err := warmer.Shutdown(); err != nil {
			logger.Error("目录预热关闭异常", zap.Error(err))
		}
	}

	// 关闭数据库连接
	if db != nil {
		if closeDB, err := db.DB(); err == nil {
			closeDB.Close()
		}
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// openDatabase 连接数据库并执行迁移
func openDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	db, err := database.NewDB(&cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("数据库连接成功")

	if err := database.RunMigrations(db, logger); err != nil {
		if sqlDB, derr := db.DB(); derr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	return db, nil
}
