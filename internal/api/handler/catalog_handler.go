package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/dee-sakwe/course-reg-system-dsa/internal/dto"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/service"
	"github.com/dee-sakwe/course-reg-system-dsa/pkg/response"
)

// CatalogHandler 课程目录模块 HTTP 处理器
type CatalogHandler struct {
	catalogSvc service.CatalogService
}

// NewCatalogHandler 创建 CatalogHandler
func NewCatalogHandler(catalogSvc service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogSvc: catalogSvc}
}

// ListCourses 课程目录及选课判定
// GET /api/v1/catalog/courses?q=&refresh=
func (h *CatalogHandler) ListCourses(c *gin.Context) {
	var req dto.CatalogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 20001, "参数校验失败")
		return
	}

	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	result, err := h.catalogSvc.List(c.Request.Context(), studentID, &req)
	if err != nil {
		h.handleCatalogError(c, err)
		return
	}

	response.OK(c, result)
}

// Refresh 强制刷新课程目录
// POST /api/v1/catalog/refresh
func (h *CatalogHandler) Refresh(c *gin.Context) {
	result, err := h.catalogSvc.Refresh(c.Request.Context())
	if err != nil {
		h.handleCatalogError(c, err)
		return
	}

	response.OK(c, result)
}

// ClearCache 清空课程目录缓存
// DELETE /api/v1/catalog/cache
func (h *CatalogHandler) ClearCache(c *gin.Context) {
	if err := h.catalogSvc.ClearCache(c.Request.Context()); err != nil {
		h.handleCatalogError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *CatalogHandler) handleCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUpstreamUnavailable):
		response.BadGateway(c, 20201, "选课服务暂不可用，请稍后重试")
	default:
		response.InternalError(c)
	}
}
