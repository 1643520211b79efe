package service

import "time"

// Clock 时间来源，测试中可替换为固定时钟
type Clock interface {
	Now() time.Time
}

// SystemClock 系统时钟，Location 为空时使用本地时区
type SystemClock struct {
	Location *time.Location
}

// Now 当前时间
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// sameDay 判断两个时间是否落在同一个日历日（按 a 的时区）
func sameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// dayStart 当天零点
func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
