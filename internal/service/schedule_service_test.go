package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dee-sakwe/course-reg-system-dsa/internal/dto"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/model"
)

// ── 测试辅助 ──

// 2026-01-07 为周三
var fixedNow = time.Date(2026, 1, 7, 15, 0, 0, 0, time.UTC)

func setupScheduleService() (*scheduleService, *mockUpstream, *mockCatalog) {
	up := newMockUpstream()
	cat := &mockCatalog{}
	svc := NewScheduleService(up, cat, time.UTC, 2, zap.NewNop()).(*scheduleService)
	svc.now = func() time.Time { return fixedNow }
	return svc, up, cat
}

// ── MySchedule ──

func TestMySchedule(t *testing.T) {
	svc, up, _ := setupScheduleService()
	up.enroll(studentID, 901, testCourse(2, "MATH201", 3, "TR 1:30PM-2:45PM"))
	up.enroll(studentID, 900, testCourse(1, "CS101", 4, "MWF 10:00AM-10:50AM"))

	resp, err := svc.MySchedule(context.Background(), studentID)
	if err != nil {
		t.Fatalf("MySchedule 失败: %v", err)
	}
	if resp.TotalCredits != 7 || len(resp.Courses) != 2 {
		t.Fatalf("期望 2 门 7 学分, 实际 %d 门 %d 学分", len(resp.Courses), resp.TotalCredits)
	}
	if resp.Courses[0].Code != "CS101" || resp.Courses[0].EnrollmentID != 900 {
		t.Errorf("排序或选课记录错误: %+v", resp.Courses[0])
	}
}

// ── ResolveWindow ──

func TestResolveWindow(t *testing.T) {
	svc, _, _ := setupScheduleService()

	w, err := svc.ResolveWindow(nil)
	if err != nil {
		t.Fatalf("默认窗口失败: %v", err)
	}
	if w.Start.Format(dateLayout) != "2026-01-05" || w.End.Format(dateLayout) != "2026-01-19" {
		t.Errorf("默认窗口期望 2026-01-05 ~ 2026-01-19, 实际 %s ~ %s", w.Start.Format(dateLayout), w.End.Format(dateLayout))
	}

	w, err = svc.ResolveWindow(&dto.CalendarRequest{Start: "2026-02-02"})
	if err != nil {
		t.Fatalf("仅指定 start 失败: %v", err)
	}
	if w.End.Format(dateLayout) != "2026-02-16" {
		t.Errorf("仅指定 start 时 end 应为 start+默认周数, 实际 %s", w.End.Format(dateLayout))
	}

	bad := []*dto.CalendarRequest{
		{Start: "2026-02-10", End: "2026-02-01"},
		{Start: "2026-01-01", End: "2027-06-01"},
		{Start: "02/10/2026"},
	}
	for _, req := range bad {
		if _, err := svc.ResolveWindow(req); !errors.Is(err, ErrCalendarInvalidWindow) {
			t.Errorf("%+v 期望 ErrCalendarInvalidWindow, 实际 %v", req, err)
		}
	}
}

// ── Calendar ──

func TestCalendar(t *testing.T) {
	svc, up, _ := setupScheduleService()
	up.enroll(studentID, 900, testCourse(1, "CS101", 4, "MWF 10:00AM-10:50AM"))
	up.enroll(studentID, 901, testCourse(2, "MATH201", 3, "TR 1:30PM-2:45PM"))
	up.enroll(studentID, 902, testCourse(3, "IND499", 3, "Arranged"))

	resp, err := svc.Calendar(context.Background(), studentID, &dto.CalendarRequest{Start: "2026-01-05", End: "2026-01-11"})
	if err != nil {
		t.Fatalf("Calendar 失败: %v", err)
	}
	if len(resp.Events) != 5 {
		t.Fatalf("一周 MWF+TR 期望 5 个事件, 实际 %d", len(resp.Events))
	}
	if len(resp.Unscheduled) != 1 || resp.Unscheduled[0] != "IND499" {
		t.Errorf("无法解析的课程应列入 unscheduled, 实际 %v", resp.Unscheduled)
	}
	for i := 1; i < len(resp.Events); i++ {
		if resp.Events[i].Start.Before(resp.Events[i-1].Start) {
			t.Fatal("事件应按开始时间排序")
		}
	}

	first := resp.Events[0]
	if first.Title != "CS101: CS101 Course" || first.ExtendedProps.Code != "CS101" || first.ExtendedProps.Instructor != "Dr. CS101" {
		t.Errorf("事件内容错误: %+v", first)
	}
	if first.ID != "1-2026-01-05T10:00:00.000Z" {
		t.Errorf("事件 ID 错误: %s", first.ID)
	}
}

func TestCalendar_UpstreamFailure(t *testing.T) {
	svc, up, _ := setupScheduleService()
	up.fetchErr = errors.New("boom")

	if _, err := svc.Calendar(context.Background(), studentID, nil); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("期望 ErrUpstreamUnavailable, 实际 %v", err)
	}
}

// ── Summary ──

func TestSummary(t *testing.T) {
	svc, up, cat := setupScheduleService()
	cat.courses = []model.Course{
		testCourse(1, "CS101", 4, "MWF 10:00AM-10:50AM"),
		testCourse(2, "MATH201", 3, "TR 1:30PM-2:45PM"),
		testCourse(3, "ART100", 3, "F 1:00PM-2:50PM"),
	}
	up.enroll(studentID, 900, cat.courses[0])
	up.enroll(studentID, 901, cat.courses[1])

	resp, err := svc.Summary(context.Background(), studentID)
	if err != nil {
		t.Fatalf("Summary 失败: %v", err)
	}
	want := dto.DashboardSummaryResponse{
		TotalCourses:     3,
		EnrolledCourses:  2,
		TotalCredits:     7,
		CreditLimit:      21,
		RemainingCredits: 14,
		WeeklyMinutes:    50*3 + 75*2,
	}
	if *resp != want {
		t.Errorf("期望 %+v, 实际 %+v", want, *resp)
	}
}
