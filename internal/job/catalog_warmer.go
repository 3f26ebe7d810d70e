package job

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/dee-sakwe/course-reg-system-dsa/internal/model"
)

// warmTimeout 单次预热的最长耗时
const warmTimeout = 30 * time.Second

// Catalog 可强制刷新的课程目录
type Catalog interface {
	GetAll(ctx context.Context, force bool) ([]model.Course, error)
}

// SnapshotPurger 清理过期快照，仅数据库存储需要
type SnapshotPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// CatalogWarmer 按固定间隔强制刷新课程目录，使用户请求命中缓存
type CatalogWarmer struct {
	catalog   Catalog
	purger    SnapshotPurger
	interval  time.Duration
	scheduler gocron.Scheduler
	logger    *zap.Logger
}

// NewCatalogWarmer 创建预热任务；purger 可为 nil
func NewCatalogWarmer(catalog Catalog, purger SnapshotPurger, interval time.Duration, logger *zap.Logger) (*CatalogWarmer, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("预热间隔必须为正: %s", interval)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("创建调度器失败: %w", err)
	}

	w := &CatalogWarmer{
		catalog:   catalog,
		purger:    purger,
		interval:  interval,
		scheduler: scheduler,
		logger:    logger,
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { w.warm(context.Background()) }),
		gocron.WithName("catalog warm"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("注册预热任务失败: %w", err)
	}
	return w, nil
}

// Start 启动调度器，首次预热立即执行
func (w *CatalogWarmer) Start() {
	w.scheduler.Start()
	w.logger.Info("课程目录预热已启动", zap.Duration("interval", w.interval))
}

// Shutdown 停止调度器并等待正在执行的任务结束
func (w *CatalogWarmer) Shutdown() error {
	return w.scheduler.Shutdown()
}

func (w *CatalogWarmer) warm(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, warmTimeout)
	defer cancel()

	start := time.Now()
	courses, err := w.catalog.GetAll(ctx, true)
	if err != nil {
		w.logger.Error("课程目录预热失败", zap.Error(err))
	} else {
		w.logger.Debug("课程目录预热完成",
			zap.Int("courses", len(courses)),
			zap.Duration("latency", time.Since(start)),
		)
	}

	if w.purger == nil {
		return
	}
	n, err := w.purger.PurgeExpired(ctx)
	if err != nil {
		w.logger.Warn("清理过期快照失败", zap.Error(err))
		return
	}
	if n > 0 {
		w.logger.Info("已清理过期快照", zap.Int64("rows", n))
	}
}
