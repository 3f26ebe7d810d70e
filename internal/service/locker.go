package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/dee-sakwe/course-reg-system-dsa/pkg/errors"
	"github.com/dee-sakwe/course-reg-system-dsa/pkg/redis"
)

// Locker 短时互斥锁，防止同一学生对同一课程重复提交
// 已被占用时返回 pkgerrors.ErrLockHeld
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// ── Redis 实现 ──

type redisLocker struct {
	client *redis.Client
}

// NewRedisLocker 基于 Redis SETNX 的锁，多实例部署时使用
func NewRedisLocker(client *redis.Client) Locker {
	return &redisLocker{client: client}
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	if err := l.client.AcquireLock(ctx, key, token, ttl); err != nil {
		return nil, err
	}
	return func() {
		// 释放不跟随请求 ctx，请求取消后仍需释放
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.client.ReleaseLock(rctx, key, token)
	}, nil
}

// ── 进程内实现 ──

type localLocker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	nowFn func() time.Time
}

// NewLocalLocker 进程内锁，未配置 Redis 时使用
func NewLocalLocker() Locker {
	return &localLocker{held: make(map[string]time.Time), nowFn: time.Now}
}

func (l *localLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFn()
	if exp, ok := l.held[key]; ok && now.Before(exp) {
		return nil, pkgerrors.ErrLockHeld
	}
	exp := now.Add(ttl)
	l.held[key] = exp

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		// 已过期并被他人重新获取时不释放
		if cur, ok := l.held[key]; ok && cur.Equal(exp) {
			delete(l.held, key)
		}
	}, nil
}
