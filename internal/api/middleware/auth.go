package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dee-sakwe/course-reg-system-dsa/internal/upstream"
	"github.com/dee-sakwe/course-reg-system-dsa/pkg/jwt"
	"github.com/dee-sakwe/course-reg-system-dsa/pkg/response"
)

// StudentIDKey 与 handler.StudentIDKey 一致
const StudentIDKey = "student_id"

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token
// 验证通过后注入 student_id，并把原始令牌挂到请求 ctx 上转发给上游
func JWTAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			msg := "Token 无效"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token 已过期"
			}
			response.Unauthorized(c, 10002, msg)
			c.Abort()
			return
		}

		c.Set(StudentIDKey, claims.StudentID)
		c.Request = c.Request.WithContext(upstream.WithBearerToken(c.Request.Context(), parts[1]))

		c.Next()
	}
}
