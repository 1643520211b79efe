package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ── 单双周 ──

// WeekVariant 课程所属周类型
type WeekVariant string

const (
	WeekOdd  WeekVariant = "odd"  // 单周
	WeekEven WeekVariant = "even" // 双周
	WeekBoth WeekVariant = "both" // 单双周
)

// Valid 是否为合法周类型
func (v WeekVariant) Valid() bool {
	return v == WeekOdd || v == WeekEven || v == WeekBoth
}

// IsParity 是否为具体的单周或双周（周次覆盖只接受这两种取值）
func (v WeekVariant) IsParity() bool {
	return v == WeekOdd || v == WeekEven
}

// Overlaps 两种周类型是否存在共同的周。both 与任意类型重叠。
func (v WeekVariant) Overlaps(o WeekVariant) bool {
	return v == o || v == WeekBoth || o == WeekBoth
}

// Label 中文显示名
func (v WeekVariant) Label() string {
	switch v {
	case WeekOdd:
		return "单周"
	case WeekEven:
		return "双周"
	default:
		return "单双周"
	}
}

// WeekVariantOf 根据周次返回单双周
func WeekVariantOf(weekNumber int) WeekVariant {
	if weekNumber%2 != 0 {
		return WeekOdd
	}
	return WeekEven
}

// ParseWeekVariant 解析周类型，兼容导入文件中的中文与 all 写法
func ParseWeekVariant(s string) (WeekVariant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "odd", "单周", "单":
		return WeekOdd, nil
	case "even", "双周", "双":
		return WeekEven, nil
	case "", "both", "all", "每周", "全部", "单双周":
		return WeekBoth, nil
	}
	return "", fmt.Errorf("无法识别的周类型: %q", s)
}

// ── 星期 ──

// Weekday ISO 星期，1=Monday … 7=Sunday
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

var weekdayLabels = [...]string{"", "周一", "周二", "周三", "周四", "周五", "周六", "周日"}

// Weekdays 按周一到周日排列
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Valid 是否在 1..7 范围内
func (d Weekday) Valid() bool { return d >= Monday && d <= Sunday }

// String 英文星期名，同时作为课表 schedule 的 key
func (d Weekday) String() string {
	if !d.Valid() {
		return "Weekday(" + strconv.Itoa(int(d)) + ")"
	}
	return weekdayNames[d]
}

// Label 中文星期名
func (d Weekday) Label() string {
	if !d.Valid() {
		return ""
	}
	return weekdayLabels[d]
}

// WeekdayOf 将 time.Weekday (0=Sunday) 转为 ISO 星期
func WeekdayOf(t time.Time) Weekday {
	if t.Weekday() == time.Sunday {
		return Sunday
	}
	return Weekday(t.Weekday())
}

// ParseWeekday 解析星期：英文全称/缩写、ISO 数字、中文（周一/星期一/一/周日/星期天）
func ParseWeekday(s string) (Weekday, error) {
	raw := strings.TrimSpace(s)
	if n, err := strconv.Atoi(raw); err == nil {
		if d := Weekday(n); d.Valid() {
			return d, nil
		}
		return 0, fmt.Errorf("星期超出范围: %d", n)
	}

	lower := strings.ToLower(raw)
	for d := Monday; d <= Sunday; d++ {
		name := strings.ToLower(weekdayNames[d])
		if lower == name || lower == name[:3] {
			return d, nil
		}
	}

	cn := strings.TrimPrefix(strings.TrimPrefix(raw, "星期"), "周")
	switch cn {
	case "一":
		return Monday, nil
	case "二":
		return Tuesday, nil
	case "三":
		return Wednesday, nil
	case "四":
		return Thursday, nil
	case "五":
		return Friday, nil
	case "六":
		return Saturday, nil
	case "日", "天", "七":
		return Sunday, nil
	}
	return 0, fmt.Errorf("无法识别的星期: %q", s)
}

// MarshalText 序列化为英文星期名
func (d Weekday) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("无效星期: %d", int(d))
	}
	return []byte(weekdayNames[d]), nil
}

// UnmarshalText 反序列化星期名
func (d *Weekday) UnmarshalText(b []byte) error {
	v, err := ParseWeekday(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// UnmarshalJSON 同时接受字符串与数字
func (d *Weekday) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		if !Weekday(n).Valid() {
			return fmt.Errorf("星期超出范围: %d", n)
		}
		*d = Weekday(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("无法解析星期: %s", string(b))
	}
	return d.UnmarshalText([]byte(s))
}
