package dto

import "time"

// ── 课程目录 DTO ──

// CatalogListRequest 课程目录查询参数
type CatalogListRequest struct {
	Query   string `form:"q"       binding:"omitempty,max=100"`
	Refresh bool   `form:"refresh"`
}

// MeetingResponse 解析后的上课时间
type MeetingResponse struct {
	Days  []string `json:"days"`
	Start string   `json:"start"`
	End   string   `json:"end"`
}

// DecisionResponse 选课判定
type DecisionResponse struct {
	Kind          string   `json:"kind"`
	Reason        string   `json:"reason"`
	Enrollable    bool     `json:"enrollable"`
	CurrentCredit int      `json:"current_credits,omitempty"`
	AddingCredit  int      `json:"adding_credits,omitempty"`
	CreditLimit   int      `json:"credit_limit,omitempty"`
	Missing       []string `json:"missing,omitempty"`
	ConflictsWith []string `json:"conflicts_with,omitempty"`
}

// CatalogCourseResponse 目录中的一门课程及当前学生的判定
type CatalogCourseResponse struct {
	ID             int              `json:"id"`
	Code           string           `json:"code"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	Credits        int              `json:"credits"`
	Instructor     string           `json:"instructor"`
	Schedule       string           `json:"schedule"`
	Meeting        *MeetingResponse `json:"meeting,omitempty"`
	Capacity       int              `json:"capacity"`
	Enrolled       int              `json:"enrolled"`
	SeatsAvailable int              `json:"seats_available"`
	Prerequisites  []string         `json:"prerequisites,omitempty"`
	Decision       DecisionResponse `json:"decision"`
}

// CatalogResponse 课程目录
type CatalogResponse struct {
	Courses         []CatalogCourseResponse `json:"courses"`
	Total           int                     `json:"total"`
	EnrolledCredits int                     `json:"enrolled_credits"`
	CreditLimit     int                     `json:"credit_limit"`
}

// CatalogRefreshResponse 强制刷新结果
type CatalogRefreshResponse struct {
	Courses   int       `json:"courses"`
	FetchedAt time.Time `json:"fetched_at"`
}
