package service

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziyi127/SCS/internal/model"
)

// icsUIDNamespace 课程 UID 的命名空间，同一课程多次导出 UID 不变
var icsUIDNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/ziyi127/SCS/courses"))

// nopLogger 导出时周类型推算不需要记录日志
var nopLogger = zap.NewNop()

// ICSExportOptions ICS 导出参数
type ICSExportOptions struct {
	Location      *time.Location
	SemesterStart string // 为空时从本周一开始
	TotalWeeks    int
	Now           time.Time
}

// BuildICS 把课程导出为每周（单双周为隔周）重复的 VEVENT
func BuildICS(courses []model.Course, opts ICSExportOptions) string {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.TotalWeeks <= 0 {
		opts.TotalWeeks = icsDefaultWeeks
	}
	now := opts.Now.In(opts.Location)

	// 起点：学期第一天，未设置或格式错误时为本周一
	first := dayStart(now).AddDate(0, 0, 1-int(model.WeekdayOf(now)))
	if opts.SemesterStart != "" {
		if t, err := time.ParseInLocation(model.DateLayout, opts.SemesterStart, opts.Location); err == nil {
			first = t
		}
	}
	horizon := first.AddDate(0, 0, opts.TotalWeeks*7)
	anchor := &model.Overrides{SemesterStartDate: opts.SemesterStart}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//SCS//Timetable//CN")
	cal.SetXWRCalName("课程表")
	cal.SetXWRTimezone(opts.Location.String())

	for _, c := range courses {
		date, ok := firstCourseDate(c, first, horizon, anchor)
		if !ok {
			continue
		}
		interval := 1
		if c.WeekType.IsParity() {
			interval = 2
		}
		count := 0
		for d := date; d.Before(horizon); d = d.AddDate(0, 0, 7*interval) {
			count++
		}

		uid := uuid.NewSHA1(icsUIDNamespace, []byte(fmt.Sprintf("%d|%s|%s|%s", c.Day, c.WeekType, c.StartTime, c.Name)))
		event := cal.AddEvent(uid.String() + "@scs")
		event.SetCreatedTime(now)
		event.SetDtStampTime(now)
		event.SetStartAt(model.At(date, c.StartTime))
		event.SetEndAt(model.At(date, c.EndTime))
		event.SetSummary(c.Name)
		if c.Classroom != "" {
			event.SetLocation(c.Classroom)
		}
		if desc := courseDescription(c); desc != "" {
			event.SetDescription(desc)
		}
		event.AddRrule(fmt.Sprintf("FREQ=WEEKLY;INTERVAL=%d;COUNT=%d", interval, count))
	}
	return cal.Serialize()
}

// firstCourseDate 从 first 开始找第一个星期与周类型都匹配的日期
func firstCourseDate(c model.Course, first, horizon time.Time, anchor *model.Overrides) (time.Time, bool) {
	offset := (int(c.Day) - int(model.WeekdayOf(first)) + 7) % 7
	for d := first.AddDate(0, 0, offset); d.Before(horizon); d = d.AddDate(0, 0, 7) {
		if !c.WeekType.IsParity() || resolveWeek(d, anchor, nopLogger) == c.WeekType {
			return d, true
		}
	}
	return time.Time{}, false
}

func courseDescription(c model.Course) string {
	var parts []string
	if c.Teacher != "" {
		parts = append(parts, "教师: "+c.Teacher)
	}
	if c.Notes != "" {
		parts = append(parts, "备注: "+c.Notes)
	}
	if c.Equipment != "" {
		parts = append(parts, "器材: "+c.Equipment)
	}
	return strings.Join(parts, "\n")
}
