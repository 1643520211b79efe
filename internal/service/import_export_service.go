package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ziyi127/SCS/internal/dto"
	"github.com/ziyi127/SCS/internal/model"
)

// ── 导入导出业务错误 ──

var (
	ErrImportEmpty        = errors.New("导入文件中没有课程数据")
	ErrImportFormat       = errors.New("导入文件格式错误")
	ErrImportICSParse     = errors.New("ICS 文件解析失败")
	ErrImportICSEmpty     = errors.New("ICS 文件中未发现有效课程事件")
	ErrImportICSFetch     = errors.New("获取 ICS 文件失败")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// 导入导出格式
const (
	FormatExcel = "excel"
	FormatCSV   = "csv"
	FormatJSON  = "json"
	FormatICS   = "ics"
)

// utf8BOM 让 Excel 正确识别 UTF-8 编码的 CSV
const utf8BOM = "\xEF\xBB\xBF"

// courseColumns 表格导入导出的列，顺序即导出顺序
var courseColumns = []struct {
	field   string
	header  string
	aliases []string
}{
	{"name", "课程名称", []string{"课程", "name"}},
	{"color", "颜色", []string{"color"}},
	{"teacher", "教师", []string{"老师", "teacher"}},
	{"notes", "备注", []string{"notes"}},
	{"start_time", "开始时间", []string{"start_time", "start"}},
	{"end_time", "结束时间", []string{"end_time", "end"}},
	{"day", "星期", []string{"day"}},
	{"week_type", "周类型", []string{"单双周", "week_type"}},
	{"equipment", "器材", []string{"equipment"}},
	{"classroom", "教室", []string{"地点", "classroom"}},
}

// ImportExportService 课表导入导出
//
// 导入统一为整体替换课程列表，任一行非法或课程间冲突时不做任何修改；
// JSON 导入恢复完整快照（课程、科目库、日期覆盖）。
// 导出以 bytes.Buffer 返回，由 Handler 设置响应头。
type ImportExportService interface {
	ImportExcel(ctx context.Context, r io.Reader) (*dto.ImportResult, error)
	ImportCSV(ctx context.Context, r io.Reader) (*dto.ImportResult, error)
	ImportJSON(ctx context.Context, r io.Reader) (*dto.ImportResult, error)
	ImportICS(ctx context.Context, r io.Reader) (*dto.ImportResult, error)
	// ImportICSURL 从 http(s) / webcal 地址下载后导入
	ImportICSURL(ctx context.Context, rawURL string) (*dto.ImportResult, error)

	ExportExcel(ctx context.Context) (*bytes.Buffer, string, error)
	ExportCSV(ctx context.Context) (*bytes.Buffer, string, error)
	ExportJSON(ctx context.Context) (*bytes.Buffer, string, error)
	ExportICS(ctx context.Context) (*bytes.Buffer, string, error)
}

type importExportService struct {
	store      *TimetableStore
	clock      Clock
	totalWeeks int
	logger     *zap.Logger
}

// NewImportExportService 创建导入导出服务，totalWeeks 用于 ICS 周次展开
func NewImportExportService(store *TimetableStore, clock Clock, totalWeeks int, logger *zap.Logger) ImportExportService {
	if totalWeeks <= 0 {
		totalWeeks = icsDefaultWeeks
	}
	return &importExportService{store: store, clock: clock, totalWeeks: totalWeeks, logger: logger}
}

// ════════════════════════════════════════════════════════════
// 导入
// ════════════════════════════════════════════════════════════

func (s *importExportService) ImportExcel(ctx context.Context, r io.Reader) (*dto.ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrImportEmpty
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportFormat, err)
	}
	courses, err := parseCourseRows(rows)
	if err != nil {
		return nil, err
	}
	return s.replace(ctx, FormatExcel, courses)
}

func (s *importExportService) ImportCSV(ctx context.Context, r io.Reader) (*dto.ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte(utf8BOM))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportFormat, err)
	}
	courses, err := parseCourseRows(rows)
	if err != nil {
		return nil, err
	}
	return s.replace(ctx, FormatCSV, courses)
}

func (s *importExportService) ImportJSON(ctx context.Context, r io.Reader) (*dto.ImportResult, error) {
	var snap model.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportFormat, err)
	}
	snap.EnsureInit()
	if err := s.store.ImportSnapshot(ctx, &snap); err != nil {
		return nil, err
	}
	courses := s.store.Courses()
	s.logger.Info("导入课表完成", zap.String("format", FormatJSON), zap.Int("courses", len(courses)))
	return &dto.ImportResult{Format: FormatJSON, ImportedCount: len(courses), Courses: courses}, nil
}

func (s *importExportService) ImportICS(ctx context.Context, r io.Reader) (*dto.ImportResult, error) {
	anchor := s.store.Overrides().SemesterStartDate
	courses, err := ParseICS(io.LimitReader(r, icsMaxFileSize), ICSParseOptions{
		Location:      s.location(),
		SemesterStart: anchor,
		TotalWeeks:    s.totalWeeks,
		Logger:        s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportICSParse, err)
	}
	if len(courses) == 0 {
		return nil, ErrImportICSEmpty
	}
	return s.replace(ctx, FormatICS, courses)
}

func (s *importExportService) ImportICSURL(ctx context.Context, rawURL string) (*dto.ImportResult, error) {
	body, err := FetchICSContent(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return s.ImportICS(ctx, body)
}

func (s *importExportService) replace(ctx context.Context, format string, courses []model.Course) (*dto.ImportResult, error) {
	if len(courses) == 0 {
		return nil, ErrImportEmpty
	}
	if err := s.store.ReplaceCourses(ctx, courses); err != nil {
		return nil, err
	}
	imported := s.store.Courses()
	s.logger.Info("导入课表完成", zap.String("format", format), zap.Int("courses", len(imported)))
	return &dto.ImportResult{Format: format, ImportedCount: len(imported), Courses: imported}, nil
}

// parseCourseRows 首行为表头，按列名（中英文均可）取值，空行跳过
func parseCourseRows(rows [][]string) ([]model.Course, error) {
	if len(rows) < 2 {
		return nil, ErrImportEmpty
	}

	index := make(map[string]int)
	for i, h := range rows[0] {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, utf8BOM)))
		for _, col := range courseColumns {
			if h == strings.ToLower(col.header) || containsFold(col.aliases, h) {
				if _, dup := index[col.field]; !dup {
					index[col.field] = i
				}
			}
		}
	}
	for _, required := range []string{"name", "start_time", "end_time", "day"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: 缺少列 %s", ErrImportFormat, required)
		}
	}

	get := func(row []string, field string) string {
		i, ok := index[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var courses []model.Course
	for n, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		line := n + 2
		day, err := model.ParseWeekday(get(row, "day"))
		if err != nil {
			return nil, fmt.Errorf("%w: 第 %d 行: %v", ErrImportFormat, line, err)
		}
		wt, err := model.ParseWeekVariant(get(row, "week_type"))
		if err != nil {
			return nil, fmt.Errorf("%w: 第 %d 行: %v", ErrImportFormat, line, err)
		}
		courses = append(courses, model.Course{
			Name:      get(row, "name"),
			Color:     get(row, "color"),
			Teacher:   get(row, "teacher"),
			Notes:     get(row, "notes"),
			StartTime: get(row, "start_time"),
			EndTime:   get(row, "end_time"),
			Day:       day,
			WeekType:  wt,
			Equipment: get(row, "equipment"),
			Classroom: get(row, "classroom"),
		})
	}
	if len(courses) == 0 {
		return nil, ErrImportEmpty
	}
	return courses, nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ════════════════════════════════════════════════════════════
// 导出
// ════════════════════════════════════════════════════════════

func (s *importExportService) ExportCSV(_ context.Context) (*bytes.Buffer, string, error) {
	buf := new(bytes.Buffer)
	buf.WriteString(utf8BOM)

	w := csv.NewWriter(buf)
	if err := w.Write(courseHeader()); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}
	for _, c := range orderedCourses(s.store.Snapshot()) {
		if err := w.Write(courseRow(c)); err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}
	return buf, s.filename("csv"), nil
}

func (s *importExportService) ExportJSON(_ context.Context) (*bytes.Buffer, string, error) {
	data, err := json.MarshalIndent(s.store.Snapshot(), "", "    ")
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
	}
	return bytes.NewBuffer(data), s.filename("json"), nil
}

func (s *importExportService) ExportICS(_ context.Context) (*bytes.Buffer, string, error) {
	snap := s.store.Snapshot()
	content := BuildICS(orderedCourses(snap), ICSExportOptions{
		Location:      s.location(),
		SemesterStart: snap.Overrides.SemesterStartDate,
		TotalWeeks:    s.totalWeeks,
		Now:           s.clock.Now(),
	})
	return bytes.NewBufferString(content), s.filename("ics"), nil
}

func (s *importExportService) filename(ext string) string {
	return fmt.Sprintf("课程表_%s.%s", s.clock.Now().Format("20060102"), ext)
}

func (s *importExportService) location() *time.Location {
	return s.clock.Now().Location()
}

// orderedCourses 按星期、周类型分组输出，组内保持添加顺序
func orderedCourses(snap *model.Snapshot) []model.Course {
	var out []model.Course
	for _, day := range model.Weekdays {
		bucket := snap.Schedule[day.String()]
		for _, v := range []model.WeekVariant{model.WeekOdd, model.WeekEven, model.WeekBoth} {
			out = append(out, bucket[v]...)
		}
	}
	return out
}

func courseHeader() []string {
	h := make([]string, len(courseColumns))
	for i, col := range courseColumns {
		h[i] = col.header
	}
	return h
}

func courseRow(c model.Course) []string {
	return []string{
		c.Name, c.Color, c.Teacher, c.Notes, c.StartTime, c.EndTime,
		c.Day.String(), string(c.WeekType), c.Equipment, c.Classroom,
	}
}
