package dto

// ── 选课模块 DTO ──

// EnrollRequest 选课请求，学生身份取自访问令牌
type EnrollRequest struct {
	CourseID int `json:"course_id" binding:"required,min=1"`
}

// EnrollResponse 选课成功响应
type EnrollResponse struct {
	CourseID        int    `json:"course_id"`
	Code            string `json:"code"`
	Name            string `json:"name"`
	EnrolledCredits int    `json:"enrolled_credits"`
}
