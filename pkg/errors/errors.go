package errors

import "errors"

// ErrSnapshotNotFound 持久化存储中没有课程目录快照（未写入或已过期）
var ErrSnapshotNotFound = errors.New("课程目录快照不存在")

// ErrLockHeld 分布式锁已被占用
var ErrLockHeld = errors.New("锁已被占用")
