package dto

import (
	"github.com/ziyi127/SCS/internal/model"
)

// ── 课表响应 ──

// DayScheduleResponse 某天的课表
type DayScheduleResponse struct {
	Date          string             `json:"date"`
	Weekday       string             `json:"weekday"`
	WeekType      model.WeekVariant  `json:"week_type"`
	WeekTypeLabel string             `json:"week_type_label"`
	WeekNumber    *int               `json:"week_number,omitempty"`
	Temporary     bool               `json:"temporary"` // 当天为临时课表
	Courses       []model.Occurrence `json:"courses"`
}

// WeekTypeResponse 单双周查询
type WeekTypeResponse struct {
	Date       string            `json:"date"`
	WeekType   model.WeekVariant `json:"week_type"`
	Label      string            `json:"label"`
	WeekNumber *int              `json:"week_number,omitempty"`
}

// SwapCoursesResponse 交换结果，swapped=false 表示未找到课程
type SwapCoursesResponse struct {
	Swapped   bool `json:"swapped"`
	Permanent bool `json:"permanent"`
}

// ConflictResponse 冲突详情
type ConflictResponse struct {
	Existing model.Course `json:"existing"`
}

// SubjectResponse 科目库条目
type SubjectResponse struct {
	Name string `json:"name"`
	model.SubjectInfo
}

// OverridesResponse 全部日期覆盖
type OverridesResponse struct {
	model.Overrides
}

// WeatherResponse 天气快照及悬浮窗展示用摘要
type WeatherResponse struct {
	model.Weather
	Summary string `json:"summary"`
}

// NewWeatherResponse 附带摘要的天气响应
func NewWeatherResponse(w model.Weather) WeatherResponse {
	return WeatherResponse{Weather: w, Summary: w.Summary()}
}

// ── 导入导出 ──

// ImportResult 导入结果
type ImportResult struct {
	Format        string         `json:"format"`
	ImportedCount int            `json:"imported_count"`
	Courses       []model.Course `json:"courses"`
}
