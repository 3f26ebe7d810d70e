package model

import (
	"time"

	"gorm.io/datatypes"
)

// SessionSnapshot 课程目录快照表，对应 session_snapshots
// 进程重启后用于恢复目录缓存，过期行视为不存在
type SessionSnapshot struct {
	Key       string         `gorm:"primaryKey;type:varchar(128)" json:"key"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"          json:"payload"`
	FetchedAt time.Time      `gorm:"not null"                     json:"fetched_at"`
	ExpiresAt time.Time      `gorm:"not null;index"               json:"expires_at"`
	BaseModel
}

// TableName 指定表名
func (SessionSnapshot) TableName() string { return "session_snapshots" }
