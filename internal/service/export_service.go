package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/dee-sakwe/course-reg-system-dsa/internal/dto"
	"github.com/dee-sakwe/course-reg-system-dsa/internal/eligibility"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoCourses    = errors.New("尚未选课，无可导出内容")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

const icsProductID = "-//registrar//course schedule//EN"

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写入
type ExportService interface {
	// CalendarICS 导出区间内全部上课事件为 iCalendar
	CalendarICS(ctx context.Context, studentID int, req *dto.CalendarRequest) (*bytes.Buffer, string, error)
	// ScheduleXLSX 导出已选课程为 Excel
	ScheduleXLSX(ctx context.Context, studentID int) (*bytes.Buffer, string, error)
}

type exportService struct {
	schedule ScheduleService
	now      func() time.Time
	logger   *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(schedule ScheduleService, now func() time.Time, logger *zap.Logger) ExportService {
	return &exportService{schedule: schedule, now: now, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// CalendarICS
// ═══════════════════════════════════════════════════════════
//
// 每次上课一个 VEVENT，UID 取事件 ID，重复导出 UID 不变

func (s *exportService) CalendarICS(ctx context.Context, studentID int, req *dto.CalendarRequest) (*bytes.Buffer, string, error) {
	w, err := s.schedule.ResolveWindow(req)
	if err != nil {
		return nil, "", err
	}
	expanded, err := s.schedule.EnrolledEvents(ctx, studentID, w)
	if err != nil {
		return nil, "", err
	}
	if len(expanded) == 0 {
		return nil, "", ErrExportNoCourses
	}

	stamp := s.now().UTC()
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetXWRCalName("Course Schedule")
	cal.SetXWRTimezone(w.Start.Location().String())

	n := 0
	for _, ce := range expanded {
		for _, evt := range ce.Events {
			ve := cal.AddEvent(evt.ID)
			ve.SetDtStampTime(stamp)
			ve.SetStartAt(evt.Start)
			ve.SetEndAt(evt.End)
			ve.SetSummary(evt.Title)
			if ce.Course.Instructor != "" {
				ve.SetDescription("Instructor: " + ce.Course.Instructor)
			}
			ve.AddProperty(ics.ComponentPropertyCategories, ce.Course.Code)
			n++
		}
	}

	buf := bytes.NewBufferString(cal.Serialize())
	s.logger.Info("导出日历", zap.Int("student_id", studentID), zap.Int("events", n))

	filename := fmt.Sprintf("schedule_%d_%s.ics", studentID, w.Start.Format(dateLayout))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ScheduleXLSX
// ═══════════════════════════════════════════════════════════
//
// Sheet "课表"：一行一门课，末行合计学分
// Sheet "周视图"：周一 ~ 周日为列，单元格按开始时间列出当天课程

func (s *exportService) ScheduleXLSX(ctx context.Context, studentID int) (*bytes.Buffer, string, error) {
	w, err := s.schedule.ResolveWindow(nil)
	if err != nil {
		return nil, "", err
	}
	expanded, err := s.schedule.EnrolledEvents(ctx, studentID, w)
	if err != nil {
		return nil, "", err
	}
	if len(expanded) == 0 {
		return nil, "", ErrExportNoCourses
	}

	sort.SliceStable(expanded, func(i, j int) bool {
		return expanded[i].Course.Code < expanded[j].Course.Code
	})

	f := excelize.NewFile()
	defer f.Close()

	if err := writeCourseSheet(f, expanded); err != nil {
		s.logger.Error("写入课表 Sheet 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	if err := writeWeekSheet(f, expanded); err != nil {
		s.logger.Error("写入周视图 Sheet 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	f.DeleteSheet("Sheet1")

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("schedule_%d.xlsx", studentID)
	return buf, filename, nil
}

const (
	courseSheet = "课表"
	weekSheet   = "周视图"
)

func writeCourseSheet(f *excelize.File, expanded []CourseEvents) error {
	idx, err := f.NewSheet(courseSheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	headers := []string{"课程代码", "课程名称", "学分", "教师", "排课", "星期", "开始", "结束"}
	widths := []float64{12, 32, 6, 20, 24, 16, 8, 8}
	for i, h := range headers {
		col := colName(i)
		_ = f.SetColWidth(courseSheet, col, col, widths[i])
		_ = f.SetCellValue(courseSheet, cell(col, 1), h)
	}
	_ = f.SetCellStyle(courseSheet, "A1", cell(colName(len(headers)-1), 1), headerStyle)

	row := 2
	total := 0
	for _, ce := range expanded {
		c := ce.Course
		total += c.Credits
		_ = f.SetCellValue(courseSheet, cell("A", row), c.Code)
		_ = f.SetCellValue(courseSheet, cell("B", row), c.Name)
		_ = f.SetCellValue(courseSheet, cell("C", row), c.Credits)
		_ = f.SetCellValue(courseSheet, cell("D", row), c.Instructor)
		_ = f.SetCellValue(courseSheet, cell("E", row), c.Schedule)
		if m := toMeeting(c.Schedule); m != nil {
			_ = f.SetCellValue(courseSheet, cell("F", row), strings.Join(m.Days, " "))
			_ = f.SetCellValue(courseSheet, cell("G", row), m.Start)
			_ = f.SetCellValue(courseSheet, cell("H", row), m.End)
		} else {
			_ = f.SetCellValue(courseSheet, cell("F", row), "待定")
		}
		row++
	}

	_ = f.SetCellValue(courseSheet, cell("B", row), "合计")
	_ = f.SetCellValue(courseSheet, cell("C", row), total)
	_ = f.SetCellValue(courseSheet, cell("D", row), fmt.Sprintf("上限 %d", eligibility.CreditCap))
	return nil
}

func writeWeekSheet(f *excelize.File, expanded []CourseEvents) error {
	if _, err := f.NewSheet(weekSheet); err != nil {
		return err
	}

	dayOrder := []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		time.Friday, time.Saturday, time.Sunday,
	}
	dayNames := []string{"周一", "周二", "周三", "周四", "周五", "周六", "周日"}

	type entry struct {
		start int
		text  string
	}
	byDay := make(map[time.Weekday][]entry)
	for _, ce := range expanded {
		if ce.Spec == nil {
			continue
		}
		text := fmt.Sprintf("%s %s-%s", ce.Course.Code, ce.Spec.StartClock(), ce.Spec.EndClock())
		for _, d := range ce.Spec.Days {
			byDay[d] = append(byDay[d], entry{start: ce.Spec.Start, text: text})
		}
	}

	for i, d := range dayOrder {
		col := colName(i)
		_ = f.SetColWidth(weekSheet, col, col, 22)
		_ = f.SetCellValue(weekSheet, cell(col, 1), dayNames[i])

		entries := byDay[d]
		sort.SliceStable(entries, func(a, b int) bool { return entries[a].start < entries[b].start })
		for j, e := range entries {
			_ = f.SetCellValue(weekSheet, cell(col, j+2), e.text)
		}
	}
	return nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
