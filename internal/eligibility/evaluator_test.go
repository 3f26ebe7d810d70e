package eligibility

import (
	"reflect"
	"testing"

	"github.com/dee-sakwe/course-reg-system-dsa/internal/model"
)

// ── 测试辅助 ──

func course(id int, code string, credits int, sched string) model.Course {
	return model.Course{
		ID:       id,
		Code:     code,
		Name:     code + " name",
		Credits:  credits,
		Schedule: sched,
		Capacity: 30,
		Enrolled: 10,
	}
}

func contextWith(enrolled []model.Course, eligibility []model.Eligibility) *Context {
	return BuildContext(model.StudentCourses{Courses: enrolled}, eligibility)
}

// ── Evaluate ──

func TestEvaluate_Precedence(t *testing.T) {
	enrolled := []model.Course{
		course(1, "CS101", 4, "MWF 10:00AM-10:50AM"),
		course(2, "MATH201", 4, "TR 1:30PM-2:45PM"),
		course(3, "HIST110", 4, "MW 3:00PM-4:15PM"),
		course(4, "PHYS150", 3, "TR 9:00AM-10:15AM"),
		course(5, "ENG100", 3, "F 1:00PM-2:50PM"),
	}
	// 已选 18 学分
	ec := contextWith(enrolled, []model.Eligibility{
		{ID: 30, Eligible: false, MissingPrerequisites: []model.PrerequisiteRef{{Code: "CS101"}, {Name: "Calculus I"}}},
	})

	fullAndOverCap := course(10, "BIO300", 4, "MWF 8:00AM-8:50AM")
	fullAndOverCap.Enrolled = fullAndOverCap.Capacity

	overCap := course(11, "ART210", 4, "MWF 8:00AM-8:50AM")
	withinCap := course(12, "MUS101", 3, "MWF 8:00AM-8:50AM")
	conflicting := course(13, "CHEM101", 3, "MW 10:30AM-11:20AM")
	backToBack := course(14, "CHEM102", 3, "MWF 10:50AM-11:40AM")
	unparseable := course(15, "SEM999", 3, "TBA")

	prereqMissing := course(30, "CS201", 3, "MWF 8:00AM-8:50AM")
	prereqMissing.Prerequisites = []string{"CS101", "Calculus I"}
	prereqNoData := course(31, "CS301", 3, "MWF 8:00AM-8:50AM")
	prereqNoData.Prerequisites = []string{"CS201"}

	tests := []struct {
		name   string
		course model.Course
		want   Decision
	}{
		{"已选课程", enrolled[0], Decision{Kind: KindAlreadyEnrolled}},
		{"满员优先于学分超限", fullAndOverCap, Decision{Kind: KindFull}},
		{"18+4 超过上限", overCap, Decision{Kind: KindCreditCapExceeded, Current: 18, Adding: 4, Limit: 21}},
		{"18+3 不受学分限制", withinCap, Decision{Kind: KindAllowed}},
		{"时间冲突", conflicting, Decision{Kind: KindTimeConflict, ConflictsWith: []string{"CS101"}}},
		{"首尾相接不冲突", backToBack, Decision{Kind: KindAllowed}},
		{"排课不可解析仍可选", unparseable, Decision{Kind: KindScheduleUnparseable}},
		{"先修缺失", prereqMissing, Decision{Kind: KindPrerequisitesMissing, Missing: []string{"CS101", "Calculus I"}}},
		{"先修不满足且无缺失明细", prereqNoData, Decision{Kind: KindNotEligible}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.course, ec)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("期望 %+v, 实际 %+v", tt.want, got)
			}
		})
	}
}

func TestEvaluate_NoPrerequisitesAlwaysEligible(t *testing.T) {
	// 外部资格数据把课程标为不满足，但课程本身未声明先修
	ec := contextWith(nil, []model.Eligibility{
		{ID: 7, Eligible: false, MissingPrerequisites: []model.PrerequisiteRef{{Code: "X"}}},
	})
	got := Evaluate(course(7, "OPEN100", 3, "M 9:00AM-9:50AM"), ec)
	if got.Kind != KindAllowed {
		t.Errorf("未声明先修课应视为满足, 实际 %v", got.Kind)
	}
}

func TestEvaluate_EligibleWithPrerequisites(t *testing.T) {
	c := course(8, "CS202", 3, "T 9:00AM-9:50AM")
	c.Prerequisites = []string{"CS101"}
	ec := contextWith(nil, []model.Eligibility{{ID: 8, Eligible: true}})

	if got := Evaluate(c, ec); got.Kind != KindAllowed {
		t.Errorf("资格满足应允许, 实际 %v", got.Kind)
	}
}

func TestEvaluate_PrerequisitesBeforeCreditCap(t *testing.T) {
	ec := contextWith([]model.Course{course(1, "A", 20, "M 9:00AM-9:50AM")}, nil)
	c := course(2, "B", 4, "T 9:00AM-9:50AM")
	c.Prerequisites = []string{"A0"}

	if got := Evaluate(c, ec); got.Kind != KindNotEligible {
		t.Errorf("先修检查应先于学分检查, 实际 %v", got.Kind)
	}
}

func TestEvaluate_CreditCapBeforeConflict(t *testing.T) {
	ec := contextWith([]model.Course{course(1, "A", 19, "MWF 10:00AM-10:50AM")}, nil)
	c := course(2, "B", 3, "MWF 10:00AM-10:50AM")

	if got := Evaluate(c, ec); got.Kind != KindCreditCapExceeded {
		t.Errorf("学分检查应先于冲突检查, 实际 %v", got.Kind)
	}
}

func TestEvaluate_CreditCapBeforeUnparseable(t *testing.T) {
	ec := contextWith([]model.Course{
		course(1, "CS101", 10, "MWF 10:00AM-10:50AM"),
		course(2, "MATH201", 9, "TR 1:30PM-2:45PM"),
	}, nil)

	got := Evaluate(course(3, "SEM999", 3, "TBA"), ec)
	if got.Kind != KindCreditCapExceeded {
		t.Errorf("超学分应先于排课不可解析, 实际 %v", got.Kind)
	}
}

func TestEvaluate_UnparseableEnrolledScheduleSkipped(t *testing.T) {
	ec := contextWith([]model.Course{course(1, "IND499", 3, "Arranged")}, nil)
	if len(ec.ScheduleErrors) != 1 {
		t.Fatalf("期望记录 1 条排课解析错误, 实际 %d", len(ec.ScheduleErrors))
	}
	if ec.EnrolledCredits != 3 {
		t.Errorf("无法解析的已选课程仍计入学分, 期望 3, 实际 %d", ec.EnrolledCredits)
	}

	got := Evaluate(course(2, "B", 3, "MWF 10:00AM-10:50AM"), ec)
	if got.Kind != KindAllowed {
		t.Errorf("期望 Allowed, 实际 %v", got.Kind)
	}
}

func TestEvaluate_MultipleConflicts(t *testing.T) {
	ec := contextWith([]model.Course{
		course(1, "A", 3, "M 9:00AM-9:50AM"),
		course(2, "B", 3, "W 9:30AM-10:20AM"),
		course(3, "C", 3, "F 9:00AM-9:50AM"),
	}, nil)

	got := Evaluate(course(4, "D", 3, "MW 9:15AM-10:00AM"), ec)
	if got.Kind != KindTimeConflict || !reflect.DeepEqual(got.ConflictsWith, []string{"A", "B"}) {
		t.Errorf("期望与 A、B 冲突, 实际 %+v", got)
	}
}

// ── Decision ──

func TestDecision_EnrollableAndReason(t *testing.T) {
	tests := []struct {
		d          Decision
		enrollable bool
		reason     string
	}{
		{Decision{Kind: KindAllowed}, true, "Enroll"},
		{Decision{Kind: KindScheduleUnparseable}, true, "Enroll (schedule unavailable)"},
		{Decision{Kind: KindAlreadyEnrolled}, false, "Enrolled"},
		{Decision{Kind: KindFull}, false, "Full"},
		{Decision{Kind: KindCreditCapExceeded, Current: 18, Adding: 4, Limit: 21}, false, "Credit limit exceeded (18 + 4 > 21)"},
		{Decision{Kind: KindTimeConflict, ConflictsWith: []string{"CS101", "MATH201"}}, false, "Time conflict with CS101, MATH201"},
		{Decision{Kind: KindPrerequisitesMissing, Missing: []string{"CS101"}}, false, "Missing prerequisites: CS101"},
		{Decision{Kind: KindNotEligible}, false, "Not eligible"},
	}

	for _, tt := range tests {
		t.Run(string(tt.d.Kind), func(t *testing.T) {
			if tt.d.Enrollable() != tt.enrollable {
				t.Errorf("Enrollable 期望 %v", tt.enrollable)
			}
			if tt.d.Reason() != tt.reason {
				t.Errorf("Reason 期望 %q, 实际 %q", tt.reason, tt.d.Reason())
			}
		})
	}
}

// ── BuildContext ──

func TestBuildContext(t *testing.T) {
	student := model.StudentCourses{
		Courses: []model.Course{
			course(1, "CS101", 4, "MWF 10:00AM-10:50AM"),
			course(1, "CS101", 4, "MWF 10:00AM-10:50AM"),
			course(2, "MATH201", 3, "TR 1:30PM-2:45PM"),
		},
		Enrollments: []model.Enrollment{
			{ID: 501, CourseID: 1},
			{ID: 502, CourseID: 2},
		},
	}
	ec := BuildContext(student, []model.Eligibility{
		{ID: 9, Eligible: true},
		{ID: 10, Eligible: false, MissingPrerequisites: []model.PrerequisiteRef{{Code: "", Name: ""}}},
	})

	if ec.EnrolledCredits != 7 {
		t.Errorf("重复课程只计一次学分, 期望 7, 实际 %d", ec.EnrolledCredits)
	}
	if len(ec.EnrolledSchedules) != 2 {
		t.Errorf("期望 2 条已选排课, 实际 %d", len(ec.EnrolledSchedules))
	}
	if id, ok := ec.EnrollmentID(2); !ok || id != 502 {
		t.Errorf("课程 2 的选课记录期望 502, 实际 %d", id)
	}
	if !ec.IsEligible(9) || ec.IsEligible(10) {
		t.Error("资格集合构建错误")
	}
	if _, ok := ec.MissingPrerequisites[10]; ok {
		t.Error("空的先修引用不应写入缺失列表")
	}
}
