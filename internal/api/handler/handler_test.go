package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dee-sakwe/course-reg-system-dsa/internal/dto"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/eligibility"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/schedule"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/service"
	"github.com/dee-sakwe/course-reg-system-dsa/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock CatalogService ──

type mockCatalogService struct {
	listResult    *dto.CatalogResponse
	listErr       error
	lastList      *dto.CatalogListRequest
	refreshResult *dto.CatalogRefreshResponse
	refreshErr    error
	clearErr      error
}

func (m *mockCatalogService) List(_ context.Context, _ int, req *dto.CatalogListRequest) (*dto.CatalogResponse, error) {
	m.lastList = req
	return m.listResult, m.listErr
}
func (m *mockCatalogService) Refresh(_ context.Context) (*dto.CatalogRefreshResponse, error) {
	return m.refreshResult, m.refreshErr
}
func (m *mockCatalogService) ClearCache(_ context.Context) error {
	return m.clearErr
}

// ── Mock EnrollmentService ──

type mockEnrollmentService struct {
	enrollResult *dto.EnrollResponse
	enrollErr    error
	dropErr      error
	lastStudent  int
	lastCourse   int
}

func (m *mockEnrollmentService) Enroll(_ context.Context, studentID int, req *dto.EnrollRequest) (*dto.EnrollResponse, error) {
	m.lastStudent, m.lastCourse = studentID, req.CourseID
	return m.enrollResult, m.enrollErr
}
func (m *mockEnrollmentService) Drop(_ context.Context, studentID, courseID int) error {
	m.lastStudent, m.lastCourse = studentID, courseID
	return m.dropErr
}

// ── Mock ScheduleService ──

type mockScheduleService struct {
	myResult       *dto.ScheduleResponse
	myErr          error
	calendarResult *dto.CalendarResponse
	calendarErr    error
	summaryResult  *dto.DashboardSummaryResponse
	summaryErr     error
}

func (m *mockScheduleService) MySchedule(_ context.Context, _ int) (*dto.ScheduleResponse, error) {
	return m.myResult, m.myErr
}
func (m *mockScheduleService) Calendar(_ context.Context, _ int, _ *dto.CalendarRequest) (*dto.CalendarResponse, error) {
	return m.calendarResult, m.calendarErr
}
func (m *mockScheduleService) Summary(_ context.Context, _ int) (*dto.DashboardSummaryResponse, error) {
	return m.summaryResult, m.summaryErr
}
func (m *mockScheduleService) ResolveWindow(_ *dto.CalendarRequest) (schedule.Window, error) {
	return schedule.Window{}, nil
}
func (m *mockScheduleService) EnrolledEvents(_ context.Context, _ int, _ schedule.Window) ([]service.CourseEvents, error) {
	return nil, nil
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) CalendarICS(_ context.Context, _ int, _ *dto.CalendarRequest) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}
func (m *mockExportService) ScheduleXLSX(_ context.Context, _ int) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

const testStudentID = 42

func setAuth(c *gin.Context) {
	c.Set(StudentIDKey, testStudentID)
}

// serve 注册单个路由并执行请求，authed 为 true 时模拟 JWT 中间件
func serve(method, route, target string, body io.Reader, authed bool, h gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	r := gin.New()
	r.Handle(method, route, func(c *gin.Context) {
		if authed {
			setAuth(c)
		}
		h(c)
	})
	r.ServeHTTP(w, req)
	return w
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// ═══════════════════════════════════════════════════════════
// CatalogHandler Tests
// ═══════════════════════════════════════════════════════════

func TestCatalogHandler_List_Success(t *testing.T) {
	mock := &mockCatalogService{listResult: &dto.CatalogResponse{Total: 1, CreditLimit: 21}}
	h := NewCatalogHandler(mock)

	w := serve("GET", "/catalog/courses", "/catalog/courses?q=calc&refresh=true", nil, true, h.ListCourses)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.lastList == nil || mock.lastList.Query != "calc" || !mock.lastList.Refresh {
		t.Errorf("查询参数未正确绑定: %+v", mock.lastList)
	}
	if resp := parseResponse(w); resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestCatalogHandler_List_Unauthenticated(t *testing.T) {
	h := NewCatalogHandler(&mockCatalogService{})

	w := serve("GET", "/catalog/courses", "/catalog/courses", nil, false, h.ListCourses)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 10002 {
		t.Errorf("expected error code 10002, got %d", resp.Code)
	}
}

func TestCatalogHandler_List_UpstreamDown(t *testing.T) {
	h := NewCatalogHandler(&mockCatalogService{listErr: service.ErrUpstreamUnavailable})

	w := serve("GET", "/catalog/courses", "/catalog/courses", nil, true, h.ListCourses)

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 20201 {
		t.Errorf("expected error code 20201, got %d", resp.Code)
	}
}

func TestCatalogHandler_RefreshAndClear(t *testing.T) {
	mock := &mockCatalogService{refreshResult: &dto.CatalogRefreshResponse{Courses: 12, FetchedAt: time.Now()}}
	h := NewCatalogHandler(mock)

	if w := serve("POST", "/catalog/refresh", "/catalog/refresh", nil, true, h.Refresh); w.Code != http.StatusOK {
		t.Errorf("refresh expected 200, got %d", w.Code)
	}
	if w := serve("DELETE", "/catalog/cache", "/catalog/cache", nil, true, h.ClearCache); w.Code != http.StatusOK {
		t.Errorf("clear expected 200, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// EnrollmentHandler Tests
// ═══════════════════════════════════════════════════════════

func TestEnrollmentHandler_Enroll_Success(t *testing.T) {
	mock := &mockEnrollmentService{enrollResult: &dto.EnrollResponse{CourseID: 7, Code: "CS101", EnrolledCredits: 10}}
	h := NewEnrollmentHandler(mock)

	w := serve("POST", "/enrollments", "/enrollments", jsonBody(dto.EnrollRequest{CourseID: 7}), true, h.Enroll)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if mock.lastStudent != testStudentID || mock.lastCourse != 7 {
		t.Errorf("学生或课程透传错误: student=%d course=%d", mock.lastStudent, mock.lastCourse)
	}
}

func TestEnrollmentHandler_Enroll_BadBody(t *testing.T) {
	h := NewEnrollmentHandler(&mockEnrollmentService{})

	for _, body := range []string{"invalid json", `{}`, `{"course_id":0}`} {
		w := serve("POST", "/enrollments", "/enrollments", strings.NewReader(body), true, h.Enroll)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, w.Code)
		}
		if resp := parseResponse(w); resp.Code != 30001 {
			t.Errorf("%s: expected error code 30001, got %d", body, resp.Code)
		}
	}
}

func TestEnrollmentHandler_Enroll_Blocked(t *testing.T) {
	blocked := &service.EnrollBlockedError{Decision: eligibility.Decision{
		Kind:          eligibility.KindTimeConflict,
		ConflictsWith: []string{"MATH201"},
	}}
	h := NewEnrollmentHandler(&mockEnrollmentService{enrollErr: blocked})

	w := serve("POST", "/enrollments", "/enrollments", jsonBody(dto.EnrollRequest{CourseID: 7}), true, h.Enroll)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}

	var resp struct {
		Code    int                  `json:"code"`
		Message string               `json:"message"`
		Data    dto.DecisionResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应解码失败: %v", err)
	}
	if resp.Code != 30102 || resp.Message != "Time conflict with MATH201" {
		t.Errorf("错误码或提示错误: %d %q", resp.Code, resp.Message)
	}
	if resp.Data.Kind != "time_conflict" || resp.Data.Enrollable || len(resp.Data.ConflictsWith) != 1 {
		t.Errorf("判定数据错误: %+v", resp.Data)
	}
}

func TestEnrollmentHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"课程不存在", service.ErrEnrollCourseNotFound, http.StatusNotFound, 30101},
		{"重复提交", service.ErrEnrollInFlight, http.StatusConflict, 30103},
		{"上游拒绝", service.ErrEnrollRejected, http.StatusConflict, 30104},
		{"上游不可用", service.ErrUpstreamUnavailable, http.StatusBadGateway, 30201},
		{"未知错误", context.DeadlineExceeded, http.StatusInternalServerError, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewEnrollmentHandler(&mockEnrollmentService{enrollErr: tt.err})
			w := serve("POST", "/enrollments", "/enrollments", jsonBody(dto.EnrollRequest{CourseID: 7}), true, h.Enroll)

			if w.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.code {
				t.Errorf("expected error code %d, got %d", tt.code, resp.Code)
			}
		})
	}
}

func TestEnrollmentHandler_Drop(t *testing.T) {
	mock := &mockEnrollmentService{}
	h := NewEnrollmentHandler(mock)

	w := serve("DELETE", "/enrollments/courses/:course_id", "/enrollments/courses/9", nil, true, h.Drop)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.lastCourse != 9 {
		t.Errorf("课程 ID 透传错误: %d", mock.lastCourse)
	}

	w = serve("DELETE", "/enrollments/courses/:course_id", "/enrollments/courses/abc", nil, true, h.Drop)
	if w.Code != http.StatusBadRequest {
		t.Errorf("非法课程 ID expected 400, got %d", w.Code)
	}

	h = NewEnrollmentHandler(&mockEnrollmentService{dropErr: service.ErrDropNotEnrolled})
	w = serve("DELETE", "/enrollments/courses/:course_id", "/enrollments/courses/9", nil, true, h.Drop)
	if w.Code != http.StatusNotFound {
		t.Errorf("未选课程 expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 30105 {
		t.Errorf("expected error code 30105, got %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ScheduleHandler Tests
// ═══════════════════════════════════════════════════════════

func TestScheduleHandler_GetMySchedule(t *testing.T) {
	h := NewScheduleHandler(&mockScheduleService{myResult: &dto.ScheduleResponse{StudentID: testStudentID, TotalCredits: 7}})

	w := serve("GET", "/schedule/me", "/schedule/me", nil, true, h.GetMySchedule)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestScheduleHandler_GetCalendar(t *testing.T) {
	h := NewScheduleHandler(&mockScheduleService{calendarResult: &dto.CalendarResponse{Events: []dto.CalendarEventResponse{}}})

	w := serve("GET", "/schedule/me/calendar", "/schedule/me/calendar?start=2026-01-05&end=2026-01-11", nil, true, h.GetCalendar)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	w = serve("GET", "/schedule/me/calendar", "/schedule/me/calendar?start=01/05/2026", nil, true, h.GetCalendar)
	if w.Code != http.StatusBadRequest {
		t.Errorf("非法日期 expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 40001 {
		t.Errorf("expected error code 40001, got %d", resp.Code)
	}
}

func TestScheduleHandler_GetCalendar_InvalidWindow(t *testing.T) {
	h := NewScheduleHandler(&mockScheduleService{calendarErr: service.ErrCalendarInvalidWindow})

	w := serve("GET", "/schedule/me/calendar", "/schedule/me/calendar?start=2026-02-01&end=2026-01-01", nil, true, h.GetCalendar)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 40101 {
		t.Errorf("expected error code 40101, got %d", resp.Code)
	}
}

func TestScheduleHandler_GetSummary_UpstreamDown(t *testing.T) {
	h := NewScheduleHandler(&mockScheduleService{summaryErr: service.ErrUpstreamUnavailable})

	w := serve("GET", "/dashboard/summary", "/dashboard/summary", nil, true, h.GetSummary)

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_ExportCalendar(t *testing.T) {
	mock := &mockExportService{
		buf:      bytes.NewBufferString("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"),
		filename: "schedule_42_2026-01-05.ics",
	}
	h := NewExportHandler(mock)

	w := serve("GET", "/schedule/me/calendar.ics", "/schedule/me/calendar.ics", nil, true, h.ExportCalendar)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != contentTypeICS {
		t.Errorf("Content-Type 错误: %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != "attachment; filename*=UTF-8''schedule_42_2026-01-05.ics" {
		t.Errorf("Content-Disposition 错误: %s", cd)
	}
	if !strings.HasPrefix(w.Body.String(), "BEGIN:VCALENDAR") {
		t.Error("响应体应为日历内容")
	}
}

func TestExportHandler_ExportSchedule(t *testing.T) {
	mock := &mockExportService{buf: bytes.NewBufferString("xlsx"), filename: "schedule_42.xlsx"}
	h := NewExportHandler(mock)

	w := serve("GET", "/schedule/me/export.xlsx", "/schedule/me/export.xlsx", nil, true, h.ExportSchedule)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != contentTypeXLSX {
		t.Errorf("Content-Type 错误: %s", ct)
	}
}

func TestExportHandler_NoCourses(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrExportNoCourses})

	w := serve("GET", "/schedule/me/export.xlsx", "/schedule/me/export.xlsx", nil, true, h.ExportSchedule)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 40102 {
		t.Errorf("expected error code 40102, got %d", resp.Code)
	}
}
