package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dee-sakwe/course-reg-system-dsa/internal/dto"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/service"
	"github.com/dee-sakwe/course-reg-system-dsa/pkg/response"
)

// EnrollmentHandler 选课模块 HTTP 处理器
type EnrollmentHandler struct {
	enrollSvc service.EnrollmentService
}

// NewEnrollmentHandler 创建 EnrollmentHandler
func NewEnrollmentHandler(enrollSvc service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollSvc: enrollSvc}
}

// Enroll 选课
// POST /api/v1/enrollments
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 30001, "参数校验失败")
		return
	}

	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	result, err := h.enrollSvc.Enroll(c.Request.Context(), studentID, &req)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.Created(c, result)
}

// Drop 按课程退课
// DELETE /api/v1/enrollments/courses/:course_id
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	courseID, err := strconv.Atoi(c.Param("course_id"))
	if err != nil || courseID <= 0 {
		response.BadRequest(c, 30001, "课程ID无效")
		return
	}

	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	if err := h.enrollSvc.Drop(c.Request.Context(), studentID, courseID); err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *EnrollmentHandler) handleEnrollmentError(c *gin.Context, err error) {
	var blocked *service.EnrollBlockedError
	switch {
	case errors.As(err, &blocked):
		response.ErrorWithData(c, http.StatusConflict, 30102, blocked.Decision.Reason(), service.ToDecisionResponse(blocked.Decision))
	case errors.Is(err, service.ErrEnrollCourseNotFound):
		response.NotFound(c, 30101, "课程不存在")
	case errors.Is(err, service.ErrEnrollInFlight):
		response.Conflict(c, 30103, "该课程的选课请求正在处理中")
	case errors.Is(err, service.ErrEnrollRejected):
		response.Conflict(c, 30104, "选课服务拒绝了本次选课")
	case errors.Is(err, service.ErrDropNotEnrolled):
		response.NotFound(c, 30105, "未选该课程")
	case errors.Is(err, service.ErrUpstreamUnavailable):
		response.BadGateway(c, 30201, "选课服务暂不可用，请稍后重试")
	default:
		response.InternalError(c)
	}
}
