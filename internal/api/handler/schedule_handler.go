package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/dee-sakwe/course-reg-system-dsa/internal/dto"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/service"
	"github.com/dee-sakwe/course-reg-system-dsa/pkg/response"
)

// ScheduleHandler 课表模块 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc}
}

// GetMySchedule 我的课表
// GET /api/v1/schedule/me
func (h *ScheduleHandler) GetMySchedule(c *gin.Context) {
	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	result, err := h.scheduleSvc.MySchedule(c.Request.Context(), studentID)
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

// GetCalendar 区间内的上课事件
// GET /api/v1/schedule/me/calendar?start=2026-01-05&end=2026-04-13
func (h *ScheduleHandler) GetCalendar(c *gin.Context) {
	var req dto.CalendarRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 40001, "日期格式应为 YYYY-MM-DD")
		return
	}

	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	result, err := h.scheduleSvc.Calendar(c.Request.Context(), studentID, &req)
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

// GetSummary 首页概览
// GET /api/v1/dashboard/summary
func (h *ScheduleHandler) GetSummary(c *gin.Context) {
	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	result, err := h.scheduleSvc.Summary(c.Request.Context(), studentID)
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

// handleScheduleError 课表与导出共用
func handleScheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCalendarInvalidWindow):
		response.BadRequest(c, 40101, "日历区间无效")
	case errors.Is(err, service.ErrExportNoCourses):
		response.NotFound(c, 40102, "尚未选课，无可导出内容")
	case errors.Is(err, service.ErrUpstreamUnavailable):
		response.BadGateway(c, 40201, "选课服务暂不可用，请稍后重试")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
