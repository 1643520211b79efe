package model

// Occurrence 课程在具体日期上的一次投影，字段在每次投影时重新计算
type Occurrence struct {
	Course
	Date       string `json:"date"`
	IsCurrent  bool   `json:"is_current"`
	Progress   int    `json:"progress"` // 0-100
	ComingSoon bool   `json:"coming_soon"`
	Distance   int    `json:"distance"` // 米，未知教室为 0
}

// Identity 同一天内标识一次课程投影，用于提醒去重
func (o Occurrence) Identity() string {
	return o.Date + "|" + o.StartTime + "|" + o.EndTime + "|" + o.Name
}

// SwapOccurrenceContent 交换两次投影的课程内容，时间槽不动；距离随教室一起交换
func SwapOccurrenceContent(a, b *Occurrence) {
	a.Course.SwapContent(&b.Course)
	a.Distance, b.Distance = b.Distance, a.Distance
}
