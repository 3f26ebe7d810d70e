package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dee-sakwe/course-reg-system-dsa/internal/dto"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/eligibility"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/upstream"
	pkgerrors "github.com/dee-sakwe/course-reg-system-dsa/pkg/errors"
)

// ── 选课模块业务错误 ──

var (
	ErrEnrollCourseNotFound = errors.New("课程不存在")
	ErrEnrollBlocked        = errors.New("不满足选课条件")
	ErrEnrollInFlight       = errors.New("该课程的选课请求正在处理中")
	ErrEnrollRejected       = errors.New("选课被拒绝")
	ErrDropNotEnrolled      = errors.New("未选该课程")
)

// EnrollBlockedError 复核判定不允许选课，携带具体判定
type EnrollBlockedError struct {
	Decision eligibility.Decision
}

func (e *EnrollBlockedError) Error() string {
	return ErrEnrollBlocked.Error() + ": " + e.Decision.Reason()
}

func (e *EnrollBlockedError) Unwrap() error { return ErrEnrollBlocked }

// EnrollmentService 选课业务接口
type EnrollmentService interface {
	// Enroll 提交前重新拉取上下文复核，通过后调用上游选课
	Enroll(ctx context.Context, studentID int, req *dto.EnrollRequest) (*dto.EnrollResponse, error)
	// Drop 按课程退课
	Drop(ctx context.Context, studentID, courseID int) error
}

type enrollmentService struct {
	upstream Upstream
	catalog  CatalogSource
	locker   Locker
	lockTTL  time.Duration
	logger   *zap.Logger
}

// NewEnrollmentService 创建 EnrollmentService 实例
func NewEnrollmentService(upstream Upstream, catalog CatalogSource, locker Locker, lockTTL time.Duration, logger *zap.Logger) EnrollmentService {
	return &enrollmentService{
		upstream: upstream,
		catalog:  catalog,
		locker:   locker,
		lockTTL:  lockTTL,
		logger:   logger,
	}
}

// ═══════════════════════════════════════════════════════════
// Enroll
// ═══════════════════════════════════════════════════════════
//
// 1. 同一 (学生, 课程) 加锁，重复提交直接拒绝
// 2. 强制刷新目录并重新拉取已选课程、先修资格
// 3. 与列表渲染相同的 Evaluate 复核
// 4. 调用上游选课，成功后清空目录缓存（名额已变化）

func (s *enrollmentService) Enroll(ctx context.Context, studentID int, req *dto.EnrollRequest) (*dto.EnrollResponse, error) {
	release, err := s.lock(ctx, "enroll", studentID, req.CourseID)
	if err != nil {
		return nil, err
	}
	defer release()

	state, err := loadRegistrationState(ctx, s.upstream, s.catalog, studentID, true, s.logger)
	if err != nil {
		return nil, err
	}

	course, ok := state.findCourse(req.CourseID)
	if !ok {
		return nil, ErrEnrollCourseNotFound
	}

	decision := eligibility.Evaluate(course, state.ec)
	if !decision.Enrollable() {
		s.logger.Info("选课复核未通过",
			zap.Int("student_id", studentID),
			zap.Int("course_id", course.ID),
			zap.String("kind", string(decision.Kind)),
		)
		return nil, &EnrollBlockedError{Decision: decision}
	}

	if err := s.upstream.Enroll(ctx, studentID, course.ID); err != nil {
		return nil, s.mapUpstreamEnrollError(err)
	}

	s.invalidate(ctx)
	s.logger.Info("选课成功", zap.Int("student_id", studentID), zap.Int("course_id", course.ID))

	return &dto.EnrollResponse{
		CourseID:        course.ID,
		Code:            course.Code,
		Name:            course.Name,
		EnrolledCredits: state.ec.EnrolledCredits + course.Credits,
	}, nil
}

// mapUpstreamEnrollError 上游拒绝时尽量还原为判定，其余视为上游不可用
func (s *enrollmentService) mapUpstreamEnrollError(err error) error {
	uerr, ok := upstream.AsError(err)
	if !ok || !uerr.IsClientError() {
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	if len(uerr.Missing) > 0 {
		return &EnrollBlockedError{Decision: eligibility.Decision{
			Kind:    eligibility.KindPrerequisitesMissing,
			Missing: uerr.Missing,
		}}
	}
	return fmt.Errorf("%w: %s", ErrEnrollRejected, uerr.Message)
}

// ═══════════════════════════════════════════════════════════
// Drop
// ═══════════════════════════════════════════════════════════

func (s *enrollmentService) Drop(ctx context.Context, studentID, courseID int) error {
	release, err := s.lock(ctx, "drop", studentID, courseID)
	if err != nil {
		return err
	}
	defer release()

	student, err := loadStudentCourses(ctx, s.upstream, studentID, s.logger)
	if err != nil {
		return err
	}

	ec := eligibility.BuildContext(student, nil)
	enrollmentID, ok := ec.EnrollmentID(courseID)
	if !ok {
		return ErrDropNotEnrolled
	}

	if err := s.upstream.Drop(ctx, enrollmentID); err != nil {
		if uerr, ok := upstream.AsError(err); ok && uerr.Status == http.StatusNotFound {
			return ErrDropNotEnrolled
		}
		s.logger.Error("退课失败", zap.Int("enrollment_id", enrollmentID), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	s.invalidate(ctx)
	s.logger.Info("退课成功", zap.Int("student_id", studentID), zap.Int("course_id", courseID))
	return nil
}

// ── 内部辅助 ──

func (s *enrollmentService) lock(ctx context.Context, op string, studentID, courseID int) (func(), error) {
	key := op + ":" + strconv.Itoa(studentID) + ":" + strconv.Itoa(courseID)
	release, err := s.locker.Acquire(ctx, key, s.lockTTL)
	if errors.Is(err, pkgerrors.ErrLockHeld) {
		return nil, ErrEnrollInFlight
	}
	if err != nil {
		// 锁服务异常时降级为不加锁
		s.logger.Warn("获取选课锁失败，继续处理", zap.String("key", key), zap.Error(err))
		return func() {}, nil
	}
	return release, nil
}

func (s *enrollmentService) invalidate(ctx context.Context) {
	if err := s.catalog.Invalidate(ctx); err != nil {
		s.logger.Warn("清空目录缓存失败", zap.Error(err))
	}
}
