package handler

import "github.com/dee-sakwe/course-reg-system-dsa/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Catalog    *CatalogHandler
	Enrollment *EnrollmentHandler
	Schedule   *ScheduleHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Catalog:    NewCatalogHandler(svc.Catalog),
		Enrollment: NewEnrollmentHandler(svc.Enrollment),
		Schedule:   NewScheduleHandler(svc.Schedule),
		Export:     NewExportHandler(svc.Export),
	}
}
