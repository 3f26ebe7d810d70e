package eligibility

import (
	"fmt"
	"strings"

	"github.com/dee-sakwe/course-reg-system-dsa/internal/model"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/schedule"
)

// CreditCap 单学期学分上限
const CreditCap = 21

// Kind 判定结果类型
type Kind string

const (
	KindAllowed              Kind = "allowed"
	KindAlreadyEnrolled      Kind = "already_enrolled"
	KindFull                 Kind = "full"
	KindPrerequisitesMissing Kind = "prerequisites_missing"
	KindNotEligible          Kind = "not_eligible"
	KindCreditCapExceeded    Kind = "credit_cap_exceeded"
	KindTimeConflict         Kind = "time_conflict"
	// KindScheduleUnparseable 候选课程排课串无法解析，跳过冲突检测，仍可选
	KindScheduleUnparseable Kind = "schedule_unparseable"
)

// Decision 单门课程的选课判定
type Decision struct {
	Kind Kind `json:"kind"`

	// CreditCapExceeded
	Current int `json:"current_credits,omitempty"`
	Adding  int `json:"adding_credits,omitempty"`
	Limit   int `json:"credit_limit,omitempty"`

	// PrerequisitesMissing
	Missing []string `json:"missing,omitempty"`

	// TimeConflict，冲突课程代码
	ConflictsWith []string `json:"conflicts_with,omitempty"`
}

// Enrollable 是否允许提交选课
func (d Decision) Enrollable() bool {
	return d.Kind == KindAllowed || d.Kind == KindScheduleUnparseable
}

// Reason 面向学生的提示文案
func (d Decision) Reason() string {
	switch d.Kind {
	case KindAllowed:
		return "Enroll"
	case KindAlreadyEnrolled:
		return "Enrolled"
	case KindFull:
		return "Full"
	case KindPrerequisitesMissing:
		return "Missing prerequisites: " + strings.Join(d.Missing, ", ")
	case KindNotEligible:
		return "Not eligible"
	case KindCreditCapExceeded:
		return fmt.Sprintf("Credit limit exceeded (%d + %d > %d)", d.Current, d.Adding, d.Limit)
	case KindTimeConflict:
		return "Time conflict with " + strings.Join(d.ConflictsWith, ", ")
	case KindScheduleUnparseable:
		return "Enroll (schedule unavailable)"
	default:
		return string(d.Kind)
	}
}

// Evaluate 判定候选课程能否选课，按顺序命中第一条即返回：
//
//	已选 → 满员 → 先修缺失 → 学分超限 → 时间冲突 → 排课不可解析 → 允许
//
// 列表渲染与提交前复核共用此函数
func Evaluate(course model.Course, ec *Context) Decision {
	if ec.IsEnrolled(course.ID) {
		return Decision{Kind: KindAlreadyEnrolled}
	}

	if course.SeatsAvailable() <= 0 {
		return Decision{Kind: KindFull}
	}

	// 未声明先修课的课程总是满足资格，不看外部资格数据
	if course.HasPrerequisites() && !ec.IsEligible(course.ID) {
		if missing := ec.MissingPrerequisites[course.ID]; len(missing) > 0 {
			return Decision{Kind: KindPrerequisitesMissing, Missing: missing}
		}
		return Decision{Kind: KindNotEligible}
	}

	if ec.EnrolledCredits+course.Credits > CreditCap {
		return Decision{
			Kind:    KindCreditCapExceeded,
			Current: ec.EnrolledCredits,
			Adding:  course.Credits,
			Limit:   CreditCap,
		}
	}

	candidate, err := schedule.Parse(course.Schedule)
	if err == nil {
		specs := make([]schedule.Spec, len(ec.EnrolledSchedules))
		for i, es := range ec.EnrolledSchedules {
			specs[i] = es.Spec
		}
		if idx := schedule.FindConflicts(candidate, specs); len(idx) > 0 {
			conflicts := make([]string, len(idx))
			for i, j := range idx {
				conflicts[i] = ec.EnrolledSchedules[j].Code
			}
			return Decision{Kind: KindTimeConflict, ConflictsWith: conflicts}
		}
		return Decision{Kind: KindAllowed}
	}

	// 无法解析的排课不参与冲突检测，仍可选
	return Decision{Kind: KindScheduleUnparseable}
}
