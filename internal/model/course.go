package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultCourseColor 未指定颜色时的课程颜色
const DefaultCourseColor = "#4a86e8"

// DateLayout 覆盖记录与课表投影使用的日期格式
const DateLayout = "2006-01-02"

// Course 课程模板：某星期某周类型下的固定时段
// 以 (day, start_time, name) 作为自然键，无独立 ID
type Course struct {
	Name      string      `json:"name" validate:"required,max=100"`
	Color     string      `json:"color" validate:"omitempty,hexcolor"`
	Teacher   string      `json:"teacher,omitempty" validate:"max=50"`
	Notes     string      `json:"notes,omitempty" validate:"max=500"`
	StartTime string      `json:"start_time" validate:"required,clock"`
	EndTime   string      `json:"end_time" validate:"required,clock"`
	Day       Weekday     `json:"day" validate:"min=1,max=7"`
	WeekType  WeekVariant `json:"week_type" validate:"oneof=odd even both"`
	Equipment string      `json:"equipment,omitempty" validate:"max=200"`
	Classroom string      `json:"classroom,omitempty" validate:"max=50"`
}

// CourseKey 课程自然键
type CourseKey struct {
	Day       Weekday     `json:"day"`
	WeekType  WeekVariant `json:"week_type,omitempty"`
	StartTime string      `json:"start_time"`
	Name      string      `json:"name"`
}

// Key 返回课程自然键
func (c Course) Key() CourseKey {
	return CourseKey{Day: c.Day, WeekType: c.WeekType, StartTime: c.StartTime, Name: c.Name}
}

// Matches 判断课程是否匹配键；键未指定周类型时忽略周类型
func (k CourseKey) Matches(c Course) bool {
	if k.Day != c.Day || k.Name != c.Name || NormalizeClock(k.StartTime) != c.StartTime {
		return false
	}
	return k.WeekType == "" || k.WeekType == c.WeekType
}

// StartMinutes 开始时间距零点的分钟数，格式非法时返回 -1
func (c Course) StartMinutes() int { return clockOrNeg(c.StartTime) }

// EndMinutes 结束时间距零点的分钟数，格式非法时返回 -1
func (c Course) EndMinutes() int { return clockOrNeg(c.EndTime) }

// Duration 课程时长
func (c Course) Duration() time.Duration {
	return time.Duration(c.EndMinutes()-c.StartMinutes()) * time.Minute
}

// ConflictsWith 同一天、周类型重叠且 [start,end) 相交即冲突
func (c Course) ConflictsWith(o Course) bool {
	if c.Day != o.Day || !c.WeekType.Overlaps(o.WeekType) {
		return false
	}
	return c.StartMinutes() < o.EndMinutes() && c.EndMinutes() > o.StartMinutes()
}

// SwapContent 与另一门课交换课程内容，双方保留各自的星期、周类型与时间
func (c *Course) SwapContent(o *Course) {
	c.Name, o.Name = o.Name, c.Name
	c.Color, o.Color = o.Color, c.Color
	c.Teacher, o.Teacher = o.Teacher, c.Teacher
	c.Notes, o.Notes = o.Notes, c.Notes
	c.Equipment, o.Equipment = o.Equipment, c.Equipment
	c.Classroom, o.Classroom = o.Classroom, c.Classroom
}

// Normalize 规范化时间格式与缺省字段
func (c *Course) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.StartTime = NormalizeClock(c.StartTime)
	c.EndTime = NormalizeClock(c.EndTime)
	if c.Color == "" {
		c.Color = DefaultCourseColor
	}
	if c.WeekType == "" {
		c.WeekType = WeekBoth
	}
}

// SubjectInfo 科目库条目，与课程实例生命周期独立
type SubjectInfo struct {
	Color     string `json:"color" validate:"omitempty,hexcolor"`
	Teacher   string `json:"teacher,omitempty"`
	Notes     string `json:"notes,omitempty"`
	Equipment string `json:"equipment,omitempty"`
}

// ── HH:MM ──

// ParseClock 解析 HH:MM（兼容 H:MM 与 HH:MM:SS），返回距零点的分钟数
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("时间格式应为 HH:MM: %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("小时无效: %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("分钟无效: %q", s)
	}
	return h*60 + m, nil
}

// FormatClock 分钟数格式化为 HH:MM
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NormalizeClock 将合法时间统一为 HH:MM，非法输入原样返回
func NormalizeClock(s string) string {
	m, err := ParseClock(s)
	if err != nil {
		return s
	}
	return FormatClock(m)
}

func clockOrNeg(s string) int {
	m, err := ParseClock(s)
	if err != nil {
		return -1
	}
	return m
}

// At 把 HH:MM 落到指定日期上
func At(date time.Time, clock string) time.Time {
	m := clockOrNeg(clock)
	if m < 0 {
		m = 0
	}
	y, mo, d := date.Date()
	return time.Date(y, mo, d, m/60, m%60, 0, 0, date.Location())
}
