package catalog

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dee-sakwe/course-reg-system-dsa/internal/model"
	pkgerrors "github.com/dee-sakwe/course-reg-system-dsa/pkg/errors"
)

// DefaultTTL 目录快照的新鲜期，从最近一次成功拉取开始计算
const DefaultTTL = 5 * time.Minute

// DefaultFetchTimeout 共享拉取与快照恢复的超时，二者不随单个调用方取消
const DefaultFetchTimeout = 30 * time.Second

// Fetcher 拉取完整课程目录
type Fetcher interface {
	FetchAllCourses(ctx context.Context) ([]model.Course, error)
}

// Snapshot 缓存槽中的目录快照
type Snapshot struct {
	Courses   []model.Course `json:"courses"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Cache 单槽、定时失效的课程目录读穿缓存
// 并发未命中合并为一次上游请求；拉取失败时保留旧快照
type Cache struct {
	fetcher      Fetcher
	store        SnapshotStore
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	logger       *zap.Logger

	hydrate sync.Once
	group   singleflight.Group

	mu   sync.RWMutex
	slot *Snapshot
	// gen 每次 Invalidate 递增，拉取期间发生过清空时结果不写回缓存槽
	gen uint64
}

// Option 缓存可选项
type Option func(*Cache)

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithStore 注入快照持久化存储
func WithStore(store SnapshotStore) Option {
	return func(c *Cache) { c.store = store }
}

// WithTTL 覆盖默认新鲜期
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithFetchTimeout 覆盖共享拉取的超时
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// NewCache 创建目录缓存，默认使用进程内存储与系统时钟
func NewCache(fetcher Fetcher, logger *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		fetcher:      fetcher,
		store:        NewMemoryStore(),
		ttl:          DefaultTTL,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetAll 返回完整课程目录
// force 为 false 且快照仍新鲜时直接返回，不访问上游
// 合并后的拉取与调用方 ctx 的取消解耦，ctx 只决定本调用方等待多久
func (c *Cache) GetAll(ctx context.Context, force bool) ([]model.Course, error) {
	c.hydrate.Do(func() {
		rctx, cancel := c.detached(ctx)
		defer cancel()
		c.restore(rctx)
	})

	if !force {
		if snap, ok := c.fresh(); ok {
			c.logger.Debug("目录缓存命中", zap.Time("fetched_at", snap.FetchedAt))
			return slices.Clone(snap.Courses), nil
		}
	}

	key := "fetch"
	if force {
		key = "force"
	}
	ch := c.group.DoChan(key, func() (interface{}, error) {
		// 排队期间其他请求可能已刷新
		if !force {
			if snap, ok := c.fresh(); ok {
				return snap, nil
			}
		}
		fctx, cancel := c.detached(ctx)
		defer cancel()
		return c.refresh(fctx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("目录拉取与并发请求合并")
		}
		return slices.Clone(res.Val.(*Snapshot).Courses), nil
	}
}

// detached 保留 ctx 中的值（如透传令牌），去掉取消并加上拉取超时
func (c *Cache) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
}

// Peek 返回当前快照（可能已过期），不触发拉取
func (c *Cache) Peek() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.slot == nil {
		return Snapshot{}, false
	}
	return Snapshot{Courses: slices.Clone(c.slot.Courses), FetchedAt: c.slot.FetchedAt}, true
}

// Invalidate 清空缓存槽与持久化快照，下一次读取必定拉取上游
func (c *Cache) Invalidate(ctx context.Context) error {
	c.hydrate.Do(func() {})

	c.mu.Lock()
	c.slot = nil
	c.gen++
	c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		return err
	}
	c.logger.Info("目录缓存已清空")
	return nil
}

func (c *Cache) fresh() (*Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.slot == nil {
		return nil, false
	}
	if c.now().Sub(c.slot.FetchedAt) >= c.ttl {
		return c.slot, false
	}
	return c.slot, true
}

func (c *Cache) refresh(ctx context.Context) (*Snapshot, error) {
	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	courses, err := c.fetcher.FetchAllCourses(ctx)
	if err != nil {
		c.logger.Error("拉取课程目录失败", zap.Error(err))
		return nil, err
	}

	snap := &Snapshot{Courses: courses, FetchedAt: c.now()}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		c.logger.Debug("拉取期间缓存已清空，结果不写回")
		return snap, nil
	}
	c.slot = snap
	c.mu.Unlock()

	if err := c.store.Save(ctx, *snap); err != nil {
		c.logger.Warn("保存目录快照失败", zap.Error(err))
	}
	c.logger.Debug("目录缓存已刷新", zap.Int("courses", len(courses)))
	return snap, nil
}

// restore 首次使用时从持久化存储恢复快照，恢复的快照同样受新鲜期约束
func (c *Cache) restore(ctx context.Context) {
	snap, err := c.store.Load(ctx)
	switch {
	case errors.Is(err, pkgerrors.ErrSnapshotNotFound):
		return
	case err != nil:
		c.logger.Warn("恢复目录快照失败", zap.Error(err))
		return
	}

	c.mu.Lock()
	if c.slot == nil {
		c.slot = snap
	}
	c.mu.Unlock()

	c.logger.Info("已从持久化存储恢复目录快照",
		zap.Int("courses", len(snap.Courses)),
		zap.Time("fetched_at", snap.FetchedAt),
	)
}
