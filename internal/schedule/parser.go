package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ── 课程时间串解析器 ──────────────────────────────────────────
//
// 职责：将课程记录中的排课字符串（如 "MWF 10:00AM-10:50AM"、"TR 1:30PM-2:45PM"）
// 解析为结构化的 Spec。
//
// 设计决策：
//   - 第一个空白段之前为星期串，其余部分（重新拼接）为时间区间
//   - 星期串两阶段解码：先按缩写子串（SUN/MON/TUE/WED/THU|TH/FRI/SAT）匹配，
//     一个都未命中时才逐字符映射单字母（T=周二，R=周四）
//   - THU/TH 必须在逐字符扫描之前判断，否则 T 会被误读为周二
//   - 无法识别的字符静默忽略；星期去重后升序返回
//   - 任何格式错误都以 *ParseError 返回，绝不 panic
// ─────────────────────────────────────────────────────────────

// 解析失败原因
var (
	ErrEmptySchedule  = errors.New("排课字符串为空")
	ErrMissingTime    = errors.New("缺少时间区间")
	ErrNoDays         = errors.New("未识别到任何星期")
	ErrBadTimeRange   = errors.New("时间区间必须为 开始-结束 两段")
	ErrBadTime        = errors.New("时间格式无效")
	ErrInvertedRange  = errors.New("结束时间必须晚于开始时间")
	ErrTimeOutOfRange = errors.New("时间超出 12 小时制范围")
)

// ParseError 排课字符串解析失败
// 调用方可用 errors.Is 判断具体原因，用 errors.As 取得原始字符串
type ParseError struct {
	Raw    string
	Reason error
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("解析排课 %q 失败: %v (%s)", e.Raw, e.Reason, e.Detail)
	}
	return fmt.Sprintf("解析排课 %q 失败: %v", e.Raw, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Reason }

// Spec 结构化的周循环排课
// Days 升序且去重；Start/End 为当天零点起的分钟数，满足 Start < End
type Spec struct {
	Days  []time.Weekday `json:"days"`
	Start int            `json:"start_minute"`
	End   int            `json:"end_minute"`
}

// HasDay 判断是否在指定星期上课
func (s Spec) HasDay(d time.Weekday) bool {
	for _, day := range s.Days {
		if day == d {
			return true
		}
	}
	return false
}

func (s Spec) dayMask() uint8 {
	var m uint8
	for _, d := range s.Days {
		m |= 1 << uint(d)
	}
	return m
}

// StartClock 开始时间 HH:MM
func (s Spec) StartClock() string { return formatClock(s.Start) }

// EndClock 结束时间 HH:MM
func (s Spec) EndClock() string { return formatClock(s.End) }

// Duration 单次课时长
func (s Spec) Duration() time.Duration {
	return time.Duration(s.End-s.Start) * time.Minute
}

// ── 星期编码表 ──

// dayAbbreviations 缩写子串匹配（第一阶段），顺序即判定顺序
var dayAbbreviations = []struct {
	tokens []string
	day    time.Weekday
}{
	{[]string{"SUN"}, time.Sunday},
	{[]string{"MON"}, time.Monday},
	{[]string{"TUE"}, time.Tuesday},
	{[]string{"WED"}, time.Wednesday},
	{[]string{"THU", "TH"}, time.Thursday},
	{[]string{"FRI"}, time.Friday},
	{[]string{"SAT"}, time.Saturday},
}

// dayLetters 单字母映射（第二阶段）
var dayLetters = map[rune]time.Weekday{
	'S': time.Sunday,
	'U': time.Sunday,
	'M': time.Monday,
	'T': time.Tuesday,
	'W': time.Wednesday,
	'R': time.Thursday,
	'F': time.Friday,
}

var clockPattern = regexp.MustCompile(`(?i)(\d{1,2}):(\d{2})(AM|PM)`)

// Parse 解析排课字符串
func Parse(raw string) (Spec, error) {
	fail := func(reason error, detail string) (Spec, error) {
		return Spec{}, &ParseError{Raw: raw, Reason: reason, Detail: detail}
	}

	parts := strings.Fields(raw)
	if len(parts) == 0 {
		return fail(ErrEmptySchedule, "")
	}
	if len(parts) < 2 {
		return fail(ErrMissingTime, "")
	}

	days := ParseDays(parts[0])
	if len(days) == 0 {
		return fail(ErrNoDays, parts[0])
	}

	timeRange := strings.Join(parts[1:], " ")
	bounds := strings.Split(timeRange, "-")
	if len(bounds) != 2 {
		return fail(ErrBadTimeRange, timeRange)
	}

	start, err := parseClock(bounds[0])
	if err != nil {
		return fail(err, strings.TrimSpace(bounds[0]))
	}
	end, err := parseClock(bounds[1])
	if err != nil {
		return fail(err, strings.TrimSpace(bounds[1]))
	}
	if start >= end {
		return fail(ErrInvertedRange, timeRange)
	}

	return Spec{Days: days, Start: start, End: end}, nil
}

// ParseDays 解码星期串，结果升序去重；无法识别时返回空切片
func ParseDays(token string) []time.Weekday {
	upper := strings.ToUpper(strings.TrimSpace(token))

	seen := make(map[time.Weekday]bool, 7)

	// 阶段 1: 缩写子串
	for _, abbr := range dayAbbreviations {
		for _, t := range abbr.tokens {
			if strings.Contains(upper, t) {
				seen[abbr.day] = true
				break
			}
		}
	}

	// 阶段 2: 缩写全部未命中时逐字符扫描
	if len(seen) == 0 {
		for _, r := range upper {
			if d, ok := dayLetters[r]; ok {
				seen[d] = true
			}
		}
	}

	days := make([]time.Weekday, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// parseClock 解析 "10:00AM" / "1:30pm" 为零点起分钟数
func parseClock(s string) (int, error) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, ErrBadTime
	}

	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	if hours < 1 || hours > 12 || minutes > 59 {
		return 0, ErrTimeOutOfRange
	}

	switch strings.ToUpper(m[3]) {
	case "PM":
		if hours != 12 {
			hours += 12
		}
	case "AM":
		if hours == 12 {
			hours = 0
		}
	}
	return hours*60 + minutes, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
