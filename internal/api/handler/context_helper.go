package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/dee-sakwe/course-reg-system-dsa/pkg/response"
)

// StudentIDKey JWT 中间件写入的学生 ID 键
const StudentIDKey = "student_id"

// MustGetStudentID 从 Gin 上下文中安全提取 student_id。
// 如果 JWT 中间件未正确注入 student_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetStudentID(c *gin.Context) (int, bool) {
	v, exists := c.Get(StudentIDKey)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return 0, false
	}
	id, ok := v.(int)
	if !ok || id <= 0 {
		response.Unauthorized(c, 10002, "未认证")
		return 0, false
	}
	return id, true
}
