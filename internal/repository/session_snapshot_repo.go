package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dee-sakwe/course-reg-system-dsa/internal/model"
	pkgerrors "github.com/dee-sakwe/course-reg-system-dsa/pkg/errors"
)

// SessionSnapshotRepository 课程目录快照数据访问接口
// 方法签名与 Redis 客户端一致，二者可互换作为快照后端
type SessionSnapshotRepository interface {
	GetSnapshot(ctx context.Context, key string) ([]byte, error)
	SaveSnapshot(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	DeleteSnapshot(ctx context.Context, key string) error
	PurgeExpired(ctx context.Context) (int64, error)
}

type sessionSnapshotRepo struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSessionSnapshotRepo 创建 SessionSnapshotRepository 实例
func NewSessionSnapshotRepo(db *gorm.DB) SessionSnapshotRepository {
	return &sessionSnapshotRepo{db: db, now: time.Now}
}

func (r *sessionSnapshotRepo) GetSnapshot(ctx context.Context, key string) ([]byte, error) {
	var row model.SessionSnapshot
	err := r.db.WithContext(ctx).
		Where("key = ? AND expires_at > ?", key, r.now()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.Payload, nil
}

func (r *sessionSnapshotRepo) SaveSnapshot(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	now := r.now()
	row := model.SessionSnapshot{
		Key:       key,
		Payload:   datatypes.JSON(payload),
		FetchedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	row.CreatedAt = now
	row.UpdatedAt = now

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "fetched_at", "expires_at", "updated_at"}),
	}).Create(&row).Error
}

func (r *sessionSnapshotRepo) DeleteSnapshot(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("key = ?", key).Delete(&model.SessionSnapshot{}).Error
}

// PurgeExpired 清理过期快照，返回删除行数
func (r *sessionSnapshotRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", r.now()).Delete(&model.SessionSnapshot{})
	return res.RowsAffected, res.Error
}
