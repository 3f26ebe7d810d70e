package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/dee-sakwe/course-reg-system-dsa/config"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/model"
)

// ── 通用业务错误 ──

// ErrUpstreamUnavailable 远端选课 API 不可用或返回异常
var ErrUpstreamUnavailable = errors.New("选课服务暂不可用")

// Upstream 远端选课 API
type Upstream interface {
	FetchStudentCourses(ctx context.Context, studentID int) (model.StudentCourses, error)
	FetchEligibility(ctx context.Context, studentID int, includeFull, includeAdvisory bool) ([]model.Eligibility, error)
	Enroll(ctx context.Context, studentID, courseID int) error
	Drop(ctx context.Context, enrollmentID int) error
}

// CatalogSource 课程目录缓存
type CatalogSource interface {
	GetAll(ctx context.Context, force bool) ([]model.Course, error)
	Invalidate(ctx context.Context) error
}

// Service 所有 Service 的聚合入口
type Service struct {
	Catalog    CatalogService
	Enrollment EnrollmentService
	Schedule   ScheduleService
	Export     ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	upstream Upstream,
	catalog CatalogSource,
	locker Locker,
	logger *zap.Logger,
) *Service {
	loc := cfg.Calendar.Location()
	schedSvc := NewScheduleService(upstream, catalog, loc, cfg.Calendar.DefaultWeeks, logger)
	return &Service{
		Catalog:    NewCatalogService(upstream, catalog, logger),
		Enrollment: NewEnrollmentService(upstream, catalog, locker, cfg.Enroll.LockTTL, logger),
		Schedule:   schedSvc,
		Export:     NewExportService(schedSvc, time.Now, logger),
	}
}
