package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dee-sakwe/course-reg-system-dsa/config"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/api/handler"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/api/middleware"
	"github.com/dee-sakwe/course-reg-system-dsa/pkg/jwt"
)

// maxBodyBytes 请求体上限，选课请求体只有 course_id
const maxBodyBytes = 1 << 20

// HealthChecker 健康检查依赖，如 Redis、数据库
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// PingFunc 将普通函数适配为 HealthChecker
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Deps 路由依赖；Limiter 与 Health 均可为 nil
type Deps struct {
	Limiter middleware.RateLimiter
	Health  map[string]HealthChecker
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, deps Deps, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", healthHandler(deps.Health))

	writeLimit := middleware.RateLimit(deps.Limiter, cfg.Enroll.RateLimit, time.Minute)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	{
		// 课程目录
		catalog := v1.Group("/catalog")
		{
			catalog.GET("/courses", h.Catalog.ListCourses)
			// 刷新与清空作用于全局缓存，与选课共用限流
			catalog.POST("/refresh", writeLimit, h.Catalog.Refresh)
			catalog.DELETE("/cache", writeLimit, h.Catalog.ClearCache)
		}

		// 选课 / 退课
		enrollments := v1.Group("/enrollments")
		enrollments.Use(writeLimit)
		{
			enrollments.POST("", h.Enrollment.Enroll)
			enrollments.DELETE("/courses/:course_id", h.Enrollment.Drop)
		}

		// 课表与导出
		sched := v1.Group("/schedule/me")
		{
			sched.GET("", h.Schedule.GetMySchedule)
			sched.GET("/calendar", h.Schedule.GetCalendar)
			sched.GET("/calendar.ics", h.Export.ExportCalendar)
			sched.GET("/export.xlsx", h.Export.ExportSchedule)
		}

		v1.GET("/dashboard/summary", h.Schedule.GetSummary)
	}

	return r
}

// healthHandler 任一依赖 Ping 失败时返回 503
func healthHandler(checks map[string]HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := make(gin.H, len(checks))
		for name, chk := range checks {
			if err := chk.Ping(ctx); err != nil {
				deps[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}

		body := gin.H{"status": "ok", "deps": deps}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		c.JSON(status, body)
	}
}
