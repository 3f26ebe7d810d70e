package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/dee-sakwe/course-reg-system-dsa/internal/dto"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/eligibility"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/model"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/schedule"
)

// ── 课表模块业务错误 ──

var (
	ErrCalendarInvalidWindow = errors.New("日历区间无效")
)

// maxCalendarDays 单次日历查询的最大跨度
const maxCalendarDays = 366

const dateLayout = "2006-01-02"

// ScheduleService 课表业务接口
type ScheduleService interface {
	// MySchedule 已选课程与总学分
	MySchedule(ctx context.Context, studentID int) (*dto.ScheduleResponse, error)
	// Calendar 将已选课程展开为区间内的上课事件
	Calendar(ctx context.Context, studentID int, req *dto.CalendarRequest) (*dto.CalendarResponse, error)
	// Summary 首页概览
	Summary(ctx context.Context, studentID int) (*dto.DashboardSummaryResponse, error)
	// ResolveWindow 解析日历区间，缺省为默认学期窗口
	ResolveWindow(req *dto.CalendarRequest) (schedule.Window, error)
	// EnrolledEvents 已选课程及其展开后的事件，供导出使用
	EnrolledEvents(ctx context.Context, studentID int, w schedule.Window) ([]CourseEvents, error)
}

type scheduleService struct {
	upstream Upstream
	catalog  CatalogSource
	loc      *time.Location
	weeks    int
	now      func() time.Time
	logger   *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(upstream Upstream, catalog CatalogSource, loc *time.Location, weeks int, logger *zap.Logger) ScheduleService {
	return &scheduleService{
		upstream: upstream,
		catalog:  catalog,
		loc:      loc,
		weeks:    weeks,
		now:      time.Now,
		logger:   logger,
	}
}

// CourseEvents 一门已选课程及其事件；排课无法解析时 Events 为空、Spec 为 nil
type CourseEvents struct {
	Course model.Course
	Spec   *schedule.Spec
	Events []schedule.Event
}

// eventTitle 日历事件标题
func eventTitle(c model.Course) string {
	return c.Code + ": " + c.Name
}

// expandCourses 逐门课程解析并展开，单门课程失败只跳过该课程
func expandCourses(courses []model.Course, w schedule.Window, logger *zap.Logger) []CourseEvents {
	out := make([]CourseEvents, 0, len(courses))
	for _, c := range courses {
		ce := CourseEvents{Course: c}
		spec, err := schedule.Parse(c.Schedule)
		if err != nil {
			logger.Warn("排课串无法解析，不生成日历事件",
				zap.Int("course_id", c.ID),
				zap.String("schedule", c.Schedule),
				zap.Error(err),
			)
			out = append(out, ce)
			continue
		}
		ce.Spec = &spec
		for evt := range schedule.Expand(spec, c.ID, eventTitle(c), w) {
			ce.Events = append(ce.Events, evt)
		}
		out = append(out, ce)
	}
	return out
}

// ═══════════════════════════════════════════════════════════
// MySchedule
// ═══════════════════════════════════════════════════════════

func (s *scheduleService) MySchedule(ctx context.Context, studentID int) (*dto.ScheduleResponse, error) {
	student, err := loadStudentCourses(ctx, s.upstream, studentID, s.logger)
	if err != nil {
		return nil, err
	}

	byCourse := make(map[int]model.Enrollment, len(student.Enrollments))
	for _, e := range student.Enrollments {
		byCourse[e.CourseID] = e
	}

	ec := eligibility.BuildContext(student, nil)
	enrolled := dedupCourses(student.Courses)
	courses := make([]dto.ScheduleCourseResponse, 0, len(enrolled))
	for _, c := range enrolled {
		e := byCourse[c.ID]
		courses = append(courses, dto.ScheduleCourseResponse{
			EnrollmentID: e.ID,
			CourseID:     c.ID,
			Code:         c.Code,
			Name:         c.Name,
			Credits:      c.Credits,
			Instructor:   c.Instructor,
			Schedule:     c.Schedule,
			Meeting:      toMeeting(c.Schedule),
			EnrolledDate: e.EnrolledDate,
		})
	}
	sort.SliceStable(courses, func(i, j int) bool { return courses[i].Code < courses[j].Code })

	return &dto.ScheduleResponse{
		StudentID:    studentID,
		Student:      student.Student,
		Courses:      courses,
		TotalCredits: ec.EnrolledCredits,
		CreditLimit:  eligibility.CreditCap,
	}, nil
}

// ═══════════════════════════════════════════════════════════
// Calendar
// ═══════════════════════════════════════════════════════════

func (s *scheduleService) ResolveWindow(req *dto.CalendarRequest) (schedule.Window, error) {
	def := schedule.DefaultWindow(s.now().In(s.loc), s.weeks)
	if req == nil || (req.Start == "" && req.End == "") {
		return def, nil
	}

	w := def
	if req.Start != "" {
		start, err := time.ParseInLocation(dateLayout, req.Start, s.loc)
		if err != nil {
			return schedule.Window{}, fmt.Errorf("%w: start=%q", ErrCalendarInvalidWindow, req.Start)
		}
		w.Start = start
		if req.End == "" {
			w.End = start.AddDate(0, 0, s.weeks*7)
		}
	}
	if req.End != "" {
		end, err := time.ParseInLocation(dateLayout, req.End, s.loc)
		if err != nil {
			return schedule.Window{}, fmt.Errorf("%w: end=%q", ErrCalendarInvalidWindow, req.End)
		}
		w.End = end
	}

	if w.End.Before(w.Start) {
		return schedule.Window{}, fmt.Errorf("%w: end 早于 start", ErrCalendarInvalidWindow)
	}
	if w.End.Sub(w.Start) > maxCalendarDays*24*time.Hour {
		return schedule.Window{}, fmt.Errorf("%w: 跨度超过 %d 天", ErrCalendarInvalidWindow, maxCalendarDays)
	}
	return w, nil
}

func (s *scheduleService) EnrolledEvents(ctx context.Context, studentID int, w schedule.Window) ([]CourseEvents, error) {
	student, err := loadStudentCourses(ctx, s.upstream, studentID, s.logger)
	if err != nil {
		return nil, err
	}
	return expandCourses(dedupCourses(student.Courses), w, s.logger), nil
}

func (s *scheduleService) Calendar(ctx context.Context, studentID int, req *dto.CalendarRequest) (*dto.CalendarResponse, error) {
	w, err := s.ResolveWindow(req)
	if err != nil {
		return nil, err
	}

	expanded, err := s.EnrolledEvents(ctx, studentID, w)
	if err != nil {
		return nil, err
	}

	resp := &dto.CalendarResponse{
		WindowStart: w.Start.Format(dateLayout),
		WindowEnd:   w.End.Format(dateLayout),
		Timezone:    s.loc.String(),
		Events:      []dto.CalendarEventResponse{},
	}
	for _, ce := range expanded {
		if ce.Spec == nil {
			resp.Unscheduled = append(resp.Unscheduled, ce.Course.Code)
			continue
		}
		for _, evt := range ce.Events {
			resp.Events = append(resp.Events, dto.CalendarEventResponse{
				ID:    evt.ID,
				Title: evt.Title,
				Start: evt.Start,
				End:   evt.End,
				ExtendedProps: dto.CalendarEventProps{
					CourseID:   ce.Course.ID,
					Code:       ce.Course.Code,
					Instructor: ce.Course.Instructor,
				},
			})
		}
	}
	sort.SliceStable(resp.Events, func(i, j int) bool {
		return resp.Events[i].Start.Before(resp.Events[j].Start)
	})
	return resp, nil
}

// ═══════════════════════════════════════════════════════════
// Summary
// ═══════════════════════════════════════════════════════════

func (s *scheduleService) Summary(ctx context.Context, studentID int) (*dto.DashboardSummaryResponse, error) {
	courses, err := s.catalog.GetAll(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	student, err := loadStudentCourses(ctx, s.upstream, studentID, s.logger)
	if err != nil {
		return nil, err
	}

	ec := eligibility.BuildContext(student, nil)
	weekly := 0
	for _, es := range ec.EnrolledSchedules {
		weekly += int(es.Spec.Duration()/time.Minute) * len(es.Spec.Days)
	}

	remaining := eligibility.CreditCap - ec.EnrolledCredits
	if remaining < 0 {
		remaining = 0
	}

	return &dto.DashboardSummaryResponse{
		TotalCourses:     len(courses),
		EnrolledCourses:  len(ec.EnrolledCourseIDs),
		TotalCredits:     ec.EnrolledCredits,
		CreditLimit:      eligibility.CreditCap,
		RemainingCredits: remaining,
		WeeklyMinutes:    weekly,
	}, nil
}

func dedupCourses(courses []model.Course) []model.Course {
	seen := make(map[int]bool, len(courses))
	out := make([]model.Course, 0, len(courses))
	for _, c := range courses {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}
