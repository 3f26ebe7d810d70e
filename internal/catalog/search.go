package catalog

import (
	"strings"

	"github.com/dee-sakwe/course-reg-system-dsa/internal/model"
)

// Search 按课程名称、代码、教师做不区分大小写的子串匹配
// q 为空时原样返回
func Search(courses []model.Course, q string) []model.Course {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return courses
	}
	out := make([]model.Course, 0, len(courses))
	for _, c := range courses {
		if strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.Code), q) ||
			strings.Contains(strings.ToLower(c.Instructor), q) {
			out = append(out, c)
		}
	}
	return out
}
