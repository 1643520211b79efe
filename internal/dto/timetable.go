package dto

import (
	"github.com/ziyi127/SCS/internal/model"
)

// ── 课表查询 ──

// DateQuery 可选的日期参数，缺省为今天
type DateQuery struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// ── ICS 导入 ──

// ImportICSRequest 通过 URL 导入 ICS
type ImportICSRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// ── 课程 ──

// CourseRequest 新增 / 编辑课程请求
type CourseRequest struct {
	Name      string        `json:"name" binding:"required,max=100"`
	Color     string        `json:"color" binding:"omitempty"`
	Teacher   string        `json:"teacher" binding:"omitempty,max=50"`
	Notes     string        `json:"notes" binding:"omitempty,max=500"`
	StartTime string        `json:"start_time" binding:"required"`
	EndTime   string        `json:"end_time" binding:"required"`
	Day       model.Weekday `json:"day" binding:"required,min=1,max=7"`
	WeekType  string        `json:"week_type" binding:"omitempty"`
	Equipment string        `json:"equipment" binding:"omitempty,max=200"`
	Classroom string        `json:"classroom" binding:"omitempty,max=50"`
}

// ToModel 转换为课程模型，周类型兼容中文写法
func (r *CourseRequest) ToModel() (model.Course, error) {
	wt, err := model.ParseWeekVariant(r.WeekType)
	if err != nil {
		return model.Course{}, err
	}
	return model.Course{
		Name:      r.Name,
		Color:     r.Color,
		Teacher:   r.Teacher,
		Notes:     r.Notes,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Day:       r.Day,
		WeekType:  wt,
		Equipment: r.Equipment,
		Classroom: r.Classroom,
	}, nil
}

// CourseKeyRequest 定位一门课程（删除 / 交换）
type CourseKeyRequest struct {
	Day       model.Weekday `json:"day" binding:"required,min=1,max=7"`
	WeekType  string        `json:"week_type" binding:"omitempty"`
	StartTime string        `json:"start_time" binding:"required"`
	Name      string        `json:"name" binding:"required"`
}

// ToKey 转换为课程自然键；未指定周类型时匹配任意周类型
func (r *CourseKeyRequest) ToKey() (model.CourseKey, error) {
	key := model.CourseKey{Day: r.Day, StartTime: r.StartTime, Name: r.Name}
	if r.WeekType != "" {
		wt, err := model.ParseWeekVariant(r.WeekType)
		if err != nil {
			return model.CourseKey{}, err
		}
		key.WeekType = wt
	}
	return key, nil
}

// UpdateCourseRequest 编辑课程：Key 定位原课程，Course 为新内容
type UpdateCourseRequest struct {
	Key    CourseKeyRequest `json:"key" binding:"required"`
	Course CourseRequest    `json:"course" binding:"required"`
}

// SwapCoursesRequest 交换课程
// 临时交换只影响今天，按 (start_time, name) 在今天的课表中定位，day 可省略
type SwapCoursesRequest struct {
	A         SwapTarget `json:"a" binding:"required"`
	B         SwapTarget `json:"b" binding:"required"`
	Permanent bool       `json:"permanent"`
}

// SwapTarget 交换对象
type SwapTarget struct {
	Day       model.Weekday `json:"day,omitempty" binding:"omitempty,min=1,max=7"`
	WeekType  string        `json:"week_type" binding:"omitempty"`
	StartTime string        `json:"start_time" binding:"required"`
	Name      string        `json:"name" binding:"required"`
}

// ToKey 转换为课程自然键
func (t *SwapTarget) ToKey() (model.CourseKey, error) {
	r := CourseKeyRequest{Day: t.Day, WeekType: t.WeekType, StartTime: t.StartTime, Name: t.Name}
	return r.ToKey()
}

// ── 科目库 ──

// SubjectRequest 新增科目请求
type SubjectRequest struct {
	Name      string `json:"name" binding:"required,max=100"`
	Color     string `json:"color" binding:"omitempty"`
	Teacher   string `json:"teacher" binding:"omitempty,max=50"`
	Notes     string `json:"notes" binding:"omitempty,max=500"`
	Equipment string `json:"equipment" binding:"omitempty,max=200"`
}

// ToModel 转换为科目库条目
func (r *SubjectRequest) ToModel() model.SubjectInfo {
	return model.SubjectInfo{Color: r.Color, Teacher: r.Teacher, Notes: r.Notes, Equipment: r.Equipment}
}

// ── 日期覆盖 ──

// SemesterStartRequest 设置学期起始日期，date 为空表示清除
type SemesterStartRequest struct {
	Date string `json:"date" binding:"omitempty,datetime=2006-01-02"`
}

// WeekTypeOverrideRequest 特殊日期 / 临时单双周
type WeekTypeOverrideRequest struct {
	WeekType string `json:"week_type" binding:"required"`
}

// TempScheduleRequest 某天的临时课表
type TempScheduleRequest struct {
	Courses []model.Occurrence `json:"courses"`
}
