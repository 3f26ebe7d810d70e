package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pkgerrors "github.com/dee-sakwe/course-reg-system-dsa/pkg/errors"
)

// SnapshotStore 快照持久化，快照不存在时 Load 返回 ErrSnapshotNotFound
type SnapshotStore interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Clear(ctx context.Context) error
}

// ── 进程内存储 ──

// MemoryStore 进程内快照存储，未配置外部存储时使用
type MemoryStore struct {
	mu   sync.Mutex
	snap *Snapshot
}

// NewMemoryStore 创建进程内存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil, pkgerrors.ErrSnapshotNotFound
	}
	cp := *s.snap
	return &cp, nil
}

func (s *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = &snap
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = nil
	return nil
}

// ── 外部存储 ──

// Backend 以键值方式保存快照字节，Redis 客户端与快照表 Repository 均满足
type Backend interface {
	GetSnapshot(ctx context.Context, key string) ([]byte, error)
	SaveSnapshot(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	DeleteSnapshot(ctx context.Context, key string) error
}

// PersistentStore 将快照 JSON 编码后写入 Backend
type PersistentStore struct {
	backend   Backend
	key       string
	retention time.Duration
}

// NewPersistentStore 创建外部快照存储，retention 为后端保留时长
func NewPersistentStore(backend Backend, key string, retention time.Duration) *PersistentStore {
	return &PersistentStore{backend: backend, key: key, retention: retention}
}

func (s *PersistentStore) Load(ctx context.Context) (*Snapshot, error) {
	b, err := s.backend.GetSnapshot(ctx, s.key)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("解码目录快照失败: %w", err)
	}
	if snap.FetchedAt.IsZero() {
		return nil, pkgerrors.ErrSnapshotNotFound
	}
	return &snap, nil
}

func (s *PersistentStore) Save(ctx context.Context, snap Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("编码目录快照失败: %w", err)
	}
	return s.backend.SaveSnapshot(ctx, s.key, b, s.retention)
}

func (s *PersistentStore) Clear(ctx context.Context) error {
	return s.backend.DeleteSnapshot(ctx, s.key)
}
