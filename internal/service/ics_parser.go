package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/ziyi127/SCS/internal/model"
)

// ── ICS 解析器 ──────────────────────────────────────────────
//
// 将 iCalendar (RFC 5545) 内容解析为课程列表：
//   - DTSTART/DTEND（或 DURATION）确定星期与时间
//   - RRULE 由 rrule-go 展开到学期范围内，EXDATE 按日期剔除
//   - 同 name+day+time 的多个事件合并
//   - 每次上课日期按学期起始日期（未设置时按 ISO 周次）判断单双周，
//     全部落在单周 → odd，全部落在双周 → even，否则 both
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize  = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout = 30 * time.Second
	icsDefaultWeeks = 20
)

// ICSParseOptions ICS 解析参数
type ICSParseOptions struct {
	Location      *time.Location
	SemesterStart string // YYYY-MM-DD，可为空
	TotalWeeks    int
	Logger        *zap.Logger
}

// parsedCourseEvent ICS 解析中间结构
type parsedCourseEvent struct {
	Course   model.Course
	Variants map[model.WeekVariant]bool
}

// FetchICSContent 从 URL 获取 ICS 内容
func FetchICSContent(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	ctx, cancel := context.WithTimeout(ctx, icsFetchTimeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrImportICSFetch, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrImportICSFetch, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: HTTP %d", ErrImportICSFetch, resp.StatusCode)
	}
	// 限制响应体大小
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: closerFunc(func() error {
			defer cancel()
			return resp.Body.Close()
		}),
	}, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// ParseICS 解析 ICS 内容为课程列表
func ParseICS(reader io.Reader, opts ICSParseOptions) ([]model.Course, error) {
	cal, err := ics.ParseCalendar(reader)
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.TotalWeeks <= 0 {
		opts.TotalWeeks = icsDefaultWeeks
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	type key struct {
		name  string
		day   model.Weekday
		start string
		end   string
	}
	merged := make(map[key]*parsedCourseEvent)
	var order []key

	for _, comp := range cal.Events() {
		evt, ok := parseVEvent(comp, opts)
		if !ok {
			continue
		}
		c := evt.Course
		k := key{c.Name, c.Day, c.StartTime, c.EndTime}
		if existing, ok := merged[k]; ok {
			for v := range evt.Variants {
				existing.Variants[v] = true
			}
			continue
		}
		cp := evt
		merged[k] = &cp
		order = append(order, k)
	}

	result := make([]model.Course, 0, len(order))
	for _, k := range order {
		evt := merged[k]
		c := evt.Course
		c.WeekType = deriveWeekVariant(evt.Variants)
		result = append(result, c)
	}
	return result, nil
}

// parseVEvent 解析单个 VEVENT
func parseVEvent(evt *ics.VEvent, opts ICSParseOptions) (parsedCourseEvent, bool) {
	summary := evt.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return parsedCourseEvent{}, false
	}
	name := strings.TrimSpace(summary.Value)

	loc := opts.Location
	dtStart, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil {
		return parsedCourseEvent{}, false
	}
	dtEnd, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, loc)
	if err != nil {
		durProp := evt.GetProperty(ics.ComponentPropertyDuration)
		if durProp == nil {
			return parsedCourseEvent{}, false
		}
		d, err := parseICSDuration(durProp.Value)
		if err != nil || d <= 0 {
			return parsedCourseEvent{}, false
		}
		dtEnd = dtStart.Add(d)
	}
	if !dtEnd.After(dtStart) || !sameDay(dtStart, dtEnd) {
		return parsedCourseEvent{}, false
	}

	dates := expandOccurrences(evt, dtStart, opts)
	if len(dates) == 0 {
		return parsedCourseEvent{}, false
	}

	anchor := &model.Overrides{SemesterStartDate: opts.SemesterStart}
	variants := make(map[model.WeekVariant]bool)
	for _, d := range dates {
		variants[resolveWeek(d, anchor, opts.Logger)] = true
	}

	c := model.Course{
		Name:      name,
		StartTime: dtStart.Format("15:04"),
		EndTime:   dtEnd.Format("15:04"),
		Day:       model.WeekdayOf(dtStart),
		Classroom: propertyValue(evt, ics.ComponentPropertyLocation),
	}
	applyDescription(&c, propertyValue(evt, ics.ComponentPropertyDescription))
	c.Normalize()
	return parsedCourseEvent{Course: c, Variants: variants}, true
}

// expandOccurrences 展开 RRULE 并剔除 EXDATE；无 RRULE 时只有 DTSTART 一次
func expandOccurrences(evt *ics.VEvent, dtStart time.Time, opts ICSParseOptions) []time.Time {
	rruleProp := evt.GetProperty(ics.ComponentPropertyRrule)
	if rruleProp == nil {
		return []time.Time{dtStart}
	}

	opt, err := rrule.StrToROptionInLocation(rruleProp.Value, opts.Location)
	if err != nil {
		opts.Logger.Warn("RRULE 解析失败，按单次事件处理", zap.String("rrule", rruleProp.Value), zap.Error(err))
		return []time.Time{dtStart}
	}
	opt.Dtstart = dtStart
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		opts.Logger.Warn("RRULE 无效，按单次事件处理", zap.String("rrule", rruleProp.Value), zap.Error(err))
		return []time.Time{dtStart}
	}

	horizon := dtStart.AddDate(0, 0, opts.TotalWeeks*7)
	exDates := parseExDates(evt, opts.Location)

	var out []time.Time
	for _, t := range r.Between(dtStart, horizon, true) {
		if exDates[t.In(opts.Location).Format("20060102")] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// parseExDates 解析事件中所有 EXDATE（可能逗号分隔多个）
func parseExDates(evt *ics.VEvent, loc *time.Location) map[string]bool {
	exDates := make(map[string]bool)
	for _, prop := range evt.Properties {
		if prop.IANAToken != string(ics.ComponentPropertyExdate) {
			continue
		}
		for _, v := range strings.Split(prop.Value, ",") {
			if t, err := parseICSTime(strings.TrimSpace(v), "", loc); err == nil {
				exDates[t.Format("20060102")] = true
			}
		}
	}
	return exDates
}

// deriveWeekVariant 根据上课日期落在的单双周推导周类型
func deriveWeekVariant(variants map[model.WeekVariant]bool) model.WeekVariant {
	switch {
	case variants[model.WeekOdd] && !variants[model.WeekEven]:
		return model.WeekOdd
	case variants[model.WeekEven] && !variants[model.WeekOdd]:
		return model.WeekEven
	}
	return model.WeekBoth
}

// ── 辅助函数 ──

func propertyValue(evt *ics.VEvent, p ics.ComponentProperty) string {
	prop := evt.GetProperty(p)
	if prop == nil {
		return ""
	}
	// 文本值中的转义字符
	r := strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)
	return strings.TrimSpace(r.Replace(prop.Value))
}

// applyDescription 识别导出时写入的 "教师: / 备注: / 器材:" 行，其余内容作为备注
func applyDescription(c *model.Course, desc string) {
	var notes []string
	for _, line := range strings.Split(desc, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.HasPrefix(line, "教师: "):
			c.Teacher = strings.TrimPrefix(line, "教师: ")
		case strings.HasPrefix(line, "备注: "):
			notes = append(notes, strings.TrimPrefix(line, "备注: "))
		case strings.HasPrefix(line, "器材: "):
			c.Equipment = strings.TrimPrefix(line, "器材: ")
		default:
			notes = append(notes, line)
		}
	}
	c.Notes = strings.Join(notes, "\n")
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing property %s", propName)
	}

	// 检查 TZID 参数
	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}
	return parseICSTime(prop.Value, tzid, loc)
}

func parseICSTime(val, tzid string, loc *time.Location) (time.Time, error) {
	formats := []string{
		"20060102T150405Z",
		"20060102T150405",
		"20060102",
	}
	for _, layout := range formats {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		if strings.HasSuffix(layout, "Z") {
			return t.In(loc), nil
		}
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, tzLoc).In(loc), nil
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
}

var icsDurationRe = regexp.MustCompile(`^P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// parseICSDuration 解析 RFC 5545 DURATION，如 PT1H30M
func parseICSDuration(s string) (time.Duration, error) {
	m := icsDurationRe.FindStringSubmatch(strings.TrimPrefix(strings.TrimSpace(s), "+"))
	if m == nil {
		return 0, fmt.Errorf("无法解析时长: %s", s)
	}
	units := []time.Duration{7 * 24 * time.Hour, 24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, u := range units {
		if m[i+1] == "" {
			continue
		}
		n, _ := strconv.Atoi(m[i+1])
		d += time.Duration(n) * u
	}
	return d, nil
}
