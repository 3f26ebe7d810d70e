package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dee-sakwe/course-reg-system-dsa/internal/eligibility"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/model"
)

// registrationState 一个判定周期内的完整数据：课程目录 + 选课上下文
type registrationState struct {
	courses []model.Course
	ec      *eligibility.Context
}

// findCourse 在目录中按 ID 查找课程
func (s *registrationState) findCourse(courseID int) (model.Course, bool) {
	for _, c := range s.courses {
		if c.ID == courseID {
			return c, true
		}
	}
	return model.Course{}, false
}

// loadRegistrationState 并发拉取目录、已选课程与先修资格，三者都返回后才构建上下文
// forceCatalog 为 true 时绕过目录缓存（提交前复核使用）
func loadRegistrationState(
	ctx context.Context,
	upstream Upstream,
	catalog CatalogSource,
	studentID int,
	forceCatalog bool,
	logger *zap.Logger,
) (*registrationState, error) {
	var (
		courses []model.Course
		student model.StudentCourses
		elig    []model.Eligibility
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		courses, err = catalog.GetAll(gctx, forceCatalog)
		return err
	})
	g.Go(func() error {
		var err error
		student, err = upstream.FetchStudentCourses(gctx, studentID)
		return err
	})
	g.Go(func() error {
		var err error
		elig, err = upstream.FetchEligibility(gctx, studentID, true, false)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Error("加载选课上下文失败", zap.Int("student_id", studentID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	ec := eligibility.BuildContext(student, elig)
	logScheduleErrors(logger, ec)

	return &registrationState{courses: courses, ec: ec}, nil
}

// loadStudentCourses 仅拉取已选课程（退课、课表使用）
func loadStudentCourses(ctx context.Context, upstream Upstream, studentID int, logger *zap.Logger) (model.StudentCourses, error) {
	student, err := upstream.FetchStudentCourses(ctx, studentID)
	if err != nil {
		logger.Error("获取已选课程失败", zap.Int("student_id", studentID), zap.Error(err))
		return model.StudentCourses{}, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return student, nil
}

func logScheduleErrors(logger *zap.Logger, ec *eligibility.Context) {
	for courseID, err := range ec.ScheduleErrors {
		logger.Warn("已选课程排课串无法解析，跳过冲突检测",
			zap.Int("course_id", courseID),
			zap.Error(err),
		)
	}
}
