package schedule

// Overlaps 判断两个排课是否冲突
// 有共同上课日且半开区间 [Start, End) 相交才算冲突；首尾相接（a.End == b.Start）不冲突
func Overlaps(a, b Spec) bool {
	if !sharesDay(a, b) {
		return false
	}
	return a.Start < b.End && b.Start < a.End
}

// FindConflicts 返回 existing 中与 candidate 冲突的下标
func FindConflicts(candidate Spec, existing []Spec) []int {
	var idx []int
	for i, s := range existing {
		if Overlaps(candidate, s) {
			idx = append(idx, i)
		}
	}
	return idx
}

func sharesDay(a, b Spec) bool {
	return a.dayMask()&b.dayMask() != 0
}
