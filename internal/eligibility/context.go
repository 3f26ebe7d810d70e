package eligibility

import (
	"github.com/dee-sakwe/course-reg-system-dsa/internal/model"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/schedule"
)

// EnrolledSchedule 已选课程的解析后排课
type EnrolledSchedule struct {
	CourseID int
	Code     string
	Spec     schedule.Spec
}

// Context 单次判定使用的选课上下文快照
// 每个判定周期重新构建，构建后只读
type Context struct {
	EnrolledCourseIDs    map[int]struct{}
	EnrolledCredits      int
	EnrolledSchedules    []EnrolledSchedule
	EligibleCourseIDs    map[int]struct{}
	MissingPrerequisites map[int][]string
	// Enrollments 课程 ID → 选课记录 ID，退课时使用
	Enrollments map[int]int
	// ScheduleErrors 已选课程中排课串无法解析的，按课程 ID 记录，仅用于日志
	ScheduleErrors map[int]error
}

// BuildContext 由学生已选课程与先修资格数据构建上下文
// 排课串无法解析的已选课程不参与冲突检测，但仍计入学分
func BuildContext(student model.StudentCourses, eligibility []model.Eligibility) *Context {
	ec := &Context{
		EnrolledCourseIDs:    make(map[int]struct{}, len(student.Courses)),
		EligibleCourseIDs:    make(map[int]struct{}, len(eligibility)),
		MissingPrerequisites: make(map[int][]string),
		Enrollments:          make(map[int]int, len(student.Enrollments)),
		ScheduleErrors:       make(map[int]error),
	}

	for _, c := range student.Courses {
		if _, dup := ec.EnrolledCourseIDs[c.ID]; dup {
			continue
		}
		ec.EnrolledCourseIDs[c.ID] = struct{}{}
		ec.EnrolledCredits += c.Credits

		spec, err := schedule.Parse(c.Schedule)
		if err != nil {
			ec.ScheduleErrors[c.ID] = err
			continue
		}
		ec.EnrolledSchedules = append(ec.EnrolledSchedules, EnrolledSchedule{
			CourseID: c.ID,
			Code:     c.Code,
			Spec:     spec,
		})
	}

	for _, e := range student.Enrollments {
		ec.EnrolledCourseIDs[e.CourseID] = struct{}{}
		ec.Enrollments[e.CourseID] = e.ID
	}

	for _, el := range eligibility {
		if el.Eligible {
			ec.EligibleCourseIDs[el.ID] = struct{}{}
			continue
		}
		if len(el.MissingPrerequisites) == 0 {
			continue
		}
		labels := make([]string, 0, len(el.MissingPrerequisites))
		for _, p := range el.MissingPrerequisites {
			if l := p.Label(); l != "" {
				labels = append(labels, l)
			}
		}
		if len(labels) > 0 {
			ec.MissingPrerequisites[el.ID] = labels
		}
	}

	return ec
}

// IsEnrolled 是否已选该课程
func (ec *Context) IsEnrolled(courseID int) bool {
	_, ok := ec.EnrolledCourseIDs[courseID]
	return ok
}

// IsEligible 先修资格是否满足
func (ec *Context) IsEligible(courseID int) bool {
	_, ok := ec.EligibleCourseIDs[courseID]
	return ok
}

// EnrollmentID 返回课程对应的选课记录 ID
func (ec *Context) EnrollmentID(courseID int) (int, bool) {
	id, ok := ec.Enrollments[courseID]
	return id, ok
}
