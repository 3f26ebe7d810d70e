package schedule

import (
	"fmt"
	"iter"
	"time"
)

// DefaultTermWeeks 默认学期跨度（周），无真实校历时的近似值
const DefaultTermWeeks = 14

// eventIDLayout 事件 ID 中的时间部分，UTC 毫秒精度
const eventIDLayout = "2006-01-02T15:04:05.000Z"

// Window 展开区间，Start 与 End 所在日期均包含在内
type Window struct {
	Start time.Time
	End   time.Time
}

// DefaultWindow 以 now 所在周的周一零点为起点，向后 weeks 周
// 时区取 now.Location()；weeks <= 0 时使用 DefaultTermWeeks
func DefaultWindow(now time.Time, weeks int) Window {
	if weeks <= 0 {
		weeks = DefaultTermWeeks
	}
	// 周一为 1，周日回退 6 天
	offset := int(now.Weekday()) - int(time.Monday)
	if now.Weekday() == time.Sunday {
		offset = 6
	}
	y, m, d := now.Date()
	start := time.Date(y, m, d-offset, 0, 0, 0, 0, now.Location())
	return Window{Start: start, End: start.AddDate(0, 0, weeks*7)}
}

// Contains 判断 t 所在日期是否落在区间内
func (w Window) Contains(t time.Time) bool {
	day := truncateDay(t.In(w.Start.Location()))
	return !day.Before(truncateDay(w.Start)) && !day.After(truncateDay(w.End))
}

// Event 一次具体的上课时段
type Event struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	CourseID int       `json:"course_id"`
}

// EventID 由课程 ID 与开始时刻确定，重复展开得到相同 ID
func EventID(courseID int, start time.Time) string {
	return fmt.Sprintf("%d-%s", courseID, start.UTC().Format(eventIDLayout))
}

// Expand 在区间内按周展开排课，每个匹配的日期产出一个 Event
// 返回的序列惰性求值、可重复遍历，相同入参总是得到相同事件
// 墙上时间取 w.Start 的时区，逐日用 time.Date 重建以跨越夏令时
func Expand(spec Spec, courseID int, title string, w Window) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		if len(spec.Days) == 0 || spec.Start >= spec.End {
			return
		}
		loc := w.Start.Location()
		y, m, d := w.Start.In(loc).Date()
		last := truncateDay(w.End.In(loc))

		for i := 0; ; i++ {
			day := time.Date(y, m, d+i, 0, 0, 0, 0, loc)
			if day.After(last) {
				return
			}
			if !spec.HasDay(day.Weekday()) {
				continue
			}
			start := time.Date(y, m, d+i, spec.Start/60, spec.Start%60, 0, 0, loc)
			end := time.Date(y, m, d+i, spec.End/60, spec.End%60, 0, 0, loc)
			evt := Event{
				ID:       EventID(courseID, start),
				Title:    title,
				Start:    start,
				End:      end,
				CourseID: courseID,
			}
			if !yield(evt) {
				return
			}
		}
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
