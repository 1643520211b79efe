package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ziyi127/SCS/internal/model"
)

// ════════════════════════════════════════════════════════════
// ExportExcel 导出课表为 Excel
// ════════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "课程表"：与导入格式相同的明细，可直接再导入
//   - Sheet "周视图"：行为时间段，列为周一 ~ 周日
//   - Sheet "科目库"

const (
	sheetCourses  = "课程表"
	sheetWeekView = "周视图"
	sheetSubjects = "科目库"
)

func (s *importExportService) ExportExcel(_ context.Context) (*bytes.Buffer, string, error) {
	snap := s.store.Snapshot()
	courses := orderedCourses(snap)

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetCourses)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// ── 明细 ──
	header := courseHeader()
	for i, h := range header {
		f.SetCellValue(sheetCourses, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetCourses, "A1", cell(colName(len(header)-1), 1), headerStyle)
	f.SetColWidth(sheetCourses, "A", "A", 18)
	f.SetColWidth(sheetCourses, "B", colName(len(header)-1), 12)

	for r, c := range courses {
		for i, v := range courseRow(c) {
			f.SetCellValue(sheetCourses, cell(colName(i), r+2), v)
		}
	}

	// ── 周视图 ──
	if err := writeWeekView(f, courses, headerStyle); err != nil {
		s.logger.Error("生成周视图失败", zap.Error(err))
		return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}

	// ── 科目库 ──
	if _, err := f.NewSheet(sheetSubjects); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}
	for i, h := range []string{"科目", "颜色", "教师", "备注", "器材"} {
		f.SetCellValue(sheetSubjects, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetSubjects, "A1", "E1", headerStyle)
	names := make([]string, 0, len(snap.SubjectLibrary))
	for name := range snap.SubjectLibrary {
		names = append(names, name)
	}
	sort.Strings(names)
	for r, name := range names {
		info := snap.SubjectLibrary[name]
		for i, v := range []string{name, info.Color, info.Teacher, info.Notes, info.Equipment} {
			f.SetCellValue(sheetSubjects, cell(colName(i), r+2), v)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, s.filename("xlsx"), nil
}

// writeWeekView 以 (开始-结束) 为行、星期为列的网格
func writeWeekView(f *excelize.File, courses []model.Course, headerStyle int) error {
	if _, err := f.NewSheet(sheetWeekView); err != nil {
		return err
	}

	type slot struct{ start, end string }
	seen := make(map[slot]bool)
	var slots []slot
	grid := make(map[slot]map[model.Weekday][]string)
	for _, c := range courses {
		k := slot{c.StartTime, c.EndTime}
		if !seen[k] {
			seen[k] = true
			slots = append(slots, k)
			grid[k] = make(map[model.Weekday][]string)
		}
		text := c.Name
		if c.WeekType != model.WeekBoth {
			text += "（" + c.WeekType.Label() + "）"
		}
		if c.Classroom != "" {
			text += " @" + c.Classroom
		}
		grid[k][c.Day] = append(grid[k][c.Day], text)
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].start != slots[j].start {
			return slots[i].start < slots[j].start
		}
		return slots[i].end < slots[j].end
	})

	f.SetCellValue(sheetWeekView, "A1", "时间")
	for i, d := range model.Weekdays {
		f.SetCellValue(sheetWeekView, cell(colName(i+1), 1), d.Label())
	}
	f.SetCellStyle(sheetWeekView, "A1", cell(colName(len(model.Weekdays)), 1), headerStyle)
	f.SetColWidth(sheetWeekView, "A", "A", 14)
	f.SetColWidth(sheetWeekView, "B", colName(len(model.Weekdays)), 22)

	wrap, _ := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "center"}})
	for r, sl := range slots {
		row := r + 2
		f.SetCellValue(sheetWeekView, cell("A", row), sl.start+"-"+sl.end)
		for i, d := range model.Weekdays {
			if items := grid[sl][d]; len(items) > 0 {
				f.SetCellValue(sheetWeekView, cell(colName(i+1), row), strings.Join(items, "\n"))
			}
		}
		f.SetCellStyle(sheetWeekView, cell("B", row), cell(colName(len(model.Weekdays)), row), wrap)
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
