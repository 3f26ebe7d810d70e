package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dee-sakwe/course-reg-system-dsa/internal/catalog"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/dto"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/eligibility"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/model"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/schedule"
)

// CatalogService 课程目录业务接口
type CatalogService interface {
	// List 课程目录及当前学生对每门课的选课判定
	List(ctx context.Context, studentID int, req *dto.CatalogListRequest) (*dto.CatalogResponse, error)
	// Refresh 强制从上游刷新目录
	Refresh(ctx context.Context) (*dto.CatalogRefreshResponse, error)
	// ClearCache 清空目录缓存
	ClearCache(ctx context.Context) error
}

type catalogService struct {
	upstream Upstream
	catalog  CatalogSource
	now      func() time.Time
	logger   *zap.Logger
}

// NewCatalogService 创建 CatalogService 实例
func NewCatalogService(upstream Upstream, catalog CatalogSource, logger *zap.Logger) CatalogService {
	return &catalogService{upstream: upstream, catalog: catalog, now: time.Now, logger: logger}
}

func (s *catalogService) List(ctx context.Context, studentID int, req *dto.CatalogListRequest) (*dto.CatalogResponse, error) {
	state, err := loadRegistrationState(ctx, s.upstream, s.catalog, studentID, req.Refresh, s.logger)
	if err != nil {
		return nil, err
	}

	matched := catalog.Search(state.courses, req.Query)
	items := make([]dto.CatalogCourseResponse, 0, len(matched))
	for _, c := range matched {
		d := eligibility.Evaluate(c, state.ec)
		if d.Kind == eligibility.KindScheduleUnparseable {
			s.logger.Warn("课程排课串无法解析", zap.Int("course_id", c.ID), zap.String("schedule", c.Schedule))
		}
		items = append(items, toCatalogCourse(c, d))
	}

	return &dto.CatalogResponse{
		Courses:         items,
		Total:           len(items),
		EnrolledCredits: state.ec.EnrolledCredits,
		CreditLimit:     eligibility.CreditCap,
	}, nil
}

func (s *catalogService) Refresh(ctx context.Context) (*dto.CatalogRefreshResponse, error) {
	courses, err := s.catalog.GetAll(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	s.logger.Info("课程目录已强制刷新", zap.Int("courses", len(courses)))
	return &dto.CatalogRefreshResponse{Courses: len(courses), FetchedAt: s.now()}, nil
}

func (s *catalogService) ClearCache(ctx context.Context) error {
	return s.catalog.Invalidate(ctx)
}

// ── 转换 ──

func toCatalogCourse(c model.Course, d eligibility.Decision) dto.CatalogCourseResponse {
	return dto.CatalogCourseResponse{
		ID:             c.ID,
		Code:           c.Code,
		Name:           c.Name,
		Description:    c.Description,
		Credits:        c.Credits,
		Instructor:     c.Instructor,
		Schedule:       c.Schedule,
		Meeting:        toMeeting(c.Schedule),
		Capacity:       c.Capacity,
		Enrolled:       c.Enrolled,
		SeatsAvailable: c.SeatsAvailable(),
		Prerequisites:  c.Prerequisites,
		Decision:       ToDecisionResponse(d),
	}
}

// ToDecisionResponse 判定转为响应结构，目录列表与选课拦截共用
func ToDecisionResponse(d eligibility.Decision) dto.DecisionResponse {
	return dto.DecisionResponse{
		Kind:          string(d.Kind),
		Reason:        d.Reason(),
		Enrollable:    d.Enrollable(),
		CurrentCredit: d.Current,
		AddingCredit:  d.Adding,
		CreditLimit:   d.Limit,
		Missing:       d.Missing,
		ConflictsWith: d.ConflictsWith,
	}
}

// toMeeting 解析失败返回 nil
func toMeeting(raw string) *dto.MeetingResponse {
	spec, err := schedule.Parse(raw)
	if err != nil {
		return nil
	}
	days := make([]string, len(spec.Days))
	for i, d := range spec.Days {
		days[i] = d.String()[:3]
	}
	return &dto.MeetingResponse{Days: days, Start: spec.StartClock(), End: spec.EndClock()}
}
