package model

// ════════════════════════════════════════════════════════════
// 上游选课 API 的数据形状，字段与远端 JSON 保持一致
// ════════════════════════════════════════════════════════════

// Course 课程
// Schedule 为原始排课串（如 "MWF 10:00AM-10:50AM"），解析在 internal/schedule 完成
type Course struct {
	ID            int      `json:"id"`
	Code          string   `json:"code"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Credits       int      `json:"credits"`
	Instructor    string   `json:"instructor"`
	Schedule      string   `json:"schedule"`
	Capacity      int      `json:"capacity"`
	Enrolled      int      `json:"enrolled"`
	Prerequisites []string `json:"prerequisites,omitempty"`
}

// SeatsAvailable 剩余名额，可能为负（超额录取）
func (c *Course) SeatsAvailable() int {
	return c.Capacity - c.Enrolled
}

// HasPrerequisites 是否声明了先修课
func (c *Course) HasPrerequisites() bool {
	return len(c.Prerequisites) > 0
}

// Enrollment 选课记录
type Enrollment struct {
	ID           int    `json:"id"`
	StudentID    int    `json:"student_id"`
	CourseID     int    `json:"course_id"`
	CourseName   string `json:"course_name"`
	CourseCode   string `json:"course_code"`
	EnrolledDate string `json:"enrolled_date"`
	Semester     string `json:"semester,omitempty"`
}

// StudentCourses GET /students/{id}/courses 的响应
type StudentCourses struct {
	Student     string       `json:"student"`
	Courses     []Course     `json:"courses"`
	Enrollments []Enrollment `json:"enrollments"`
}

// PrerequisiteRef 缺失的先修课引用，code 与 name 至少一个有值
type PrerequisiteRef struct {
	Code string `json:"code,omitempty"`
	Name string `json:"name,omitempty"`
}

// Label 展示用名称，优先课程代码
func (p PrerequisiteRef) Label() string {
	if p.Code != "" {
		return p.Code
	}
	return p.Name
}

// Eligibility 单门课程的先修资格
type Eligibility struct {
	ID                   int               `json:"id"`
	Eligible             bool              `json:"eligible"`
	MissingPrerequisites []PrerequisiteRef `json:"missingPrerequisites,omitempty"`
}
