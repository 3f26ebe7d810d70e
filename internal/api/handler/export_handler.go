package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/dee-sakwe/course-reg-system-dsa/internal/dto"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/service"
	"github.com/dee-sakwe/course-reg-system-dsa/pkg/response"
)

const (
	contentTypeICS  = "text/calendar; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportCalendar 导出 iCalendar
// GET /api/v1/schedule/me/calendar.ics?start=&end=
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	var req dto.CalendarRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 40001, "日期格式应为 YYYY-MM-DD")
		return
	}

	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.CalendarICS(c.Request.Context(), studentID, &req)
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.Attachment(c, filename, contentTypeICS, buf.Bytes())
}

// ExportSchedule 导出 Excel 课表
// GET /api/v1/schedule/me/export.xlsx
func (h *ExportHandler) ExportSchedule(c *gin.Context) {
	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ScheduleXLSX(c.Request.Context(), studentID)
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.Attachment(c, filename, contentTypeXLSX, buf.Bytes())
}
