package dto

import "time"

// ── 课表模块 DTO ──

// CalendarRequest 日历查询参数，日期格式 2006-01-02，缺省为本周一起的默认学期窗口
type CalendarRequest struct {
	Start string `form:"start" binding:"omitempty,datetime=2006-01-02"`
	End   string `form:"end"   binding:"omitempty,datetime=2006-01-02"`
}

// ScheduleCourseResponse 已选课程
type ScheduleCourseResponse struct {
	EnrollmentID int              `json:"enrollment_id,omitempty"`
	CourseID     int              `json:"course_id"`
	Code         string           `json:"code"`
	Name         string           `json:"name"`
	Credits      int              `json:"credits"`
	Instructor   string           `json:"instructor"`
	Schedule     string           `json:"schedule"`
	Meeting      *MeetingResponse `json:"meeting,omitempty"`
	EnrolledDate string           `json:"enrolled_date,omitempty"`
}

// ScheduleResponse 我的课表
type ScheduleResponse struct {
	StudentID    int                      `json:"student_id"`
	Student      string                   `json:"student,omitempty"`
	Courses      []ScheduleCourseResponse `json:"courses"`
	TotalCredits int                      `json:"total_credits"`
	CreditLimit  int                      `json:"credit_limit"`
}

// CalendarEventProps 日历组件的扩展属性
type CalendarEventProps struct {
	CourseID   int    `json:"courseId"`
	Code       string `json:"code"`
	Instructor string `json:"instructor"`
}

// CalendarEventResponse 单次上课事件
type CalendarEventResponse struct {
	ID            string             `json:"id"`
	Title         string             `json:"title"`
	Start         time.Time          `json:"start"`
	End           time.Time          `json:"end"`
	ExtendedProps CalendarEventProps `json:"extendedProps"`
}

// CalendarResponse 日历
type CalendarResponse struct {
	WindowStart string                  `json:"window_start"`
	WindowEnd   string                  `json:"window_end"`
	Timezone    string                  `json:"timezone"`
	Events      []CalendarEventResponse `json:"events"`
	// Unscheduled 排课串无法解析、未出现在日历中的课程代码
	Unscheduled []string `json:"unscheduled,omitempty"`
}

// DashboardSummaryResponse 首页概览
type DashboardSummaryResponse struct {
	TotalCourses     int `json:"total_courses"`
	EnrolledCourses  int `json:"enrolled_courses"`
	TotalCredits     int `json:"total_credits"`
	CreditLimit      int `json:"credit_limit"`
	RemainingCredits int `json:"remaining_credits"`
	WeeklyMinutes    int `json:"weekly_minutes"`
}
