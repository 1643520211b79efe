package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ziyi127/SCS/internal/dto"
	"github.com/ziyi127/SCS/internal/model"
)

// ── TimetableService 接口 ──────────────────────────────────
//
// 面向 HTTP 层的课表门面：查询走投影与单双周判断，修改委托给 TimetableStore。
// 临时交换需要当天的投影结果，因此放在这里而不是 Store 中。
// ─────────────────────────────────────────────────────────────

// TimetableService 课表模块业务接口
type TimetableService interface {
	// Now 当前时间（提醒时区）
	Now() time.Time
	// Day 某天的课表及单双周信息
	Day(date time.Time) *dto.DayScheduleResponse
	// WeekType 某天的单双周与周次
	WeekType(date time.Time) *dto.WeekTypeResponse

	Courses() []model.Course
	CheckTimeConflict(c model.Course) *model.Course
	AddCourse(ctx context.Context, c model.Course) error
	UpdateCourse(ctx context.Context, key model.CourseKey, c model.Course) error
	RemoveCourse(ctx context.Context, key model.CourseKey) error
	// SwapCourses permanent=false 时只交换今天的课表
	SwapCourses(ctx context.Context, a, b model.CourseKey, permanent bool) (bool, error)

	Subjects() map[string]model.SubjectInfo
	GetSubjectInfo(name string) (model.SubjectInfo, bool)
	AddSubject(ctx context.Context, name string, info model.SubjectInfo) error
	RemoveSubject(ctx context.Context, name string) error

	Overrides() model.Overrides
	SetSemesterStartDate(ctx context.Context, date string) error
	SetSpecialDateOverride(ctx context.Context, date string, v model.WeekVariant) error
	ClearSpecialDateOverride(ctx context.Context, date string) error
	SetTempWeekType(ctx context.Context, date string, v model.WeekVariant) error
	ClearTempWeekType(ctx context.Context, date string) error
	SetTempSchedule(ctx context.Context, date string, occs []model.Occurrence) error
	ClearTempSchedule(ctx context.Context, date string) error
}

type timetableService struct {
	*TimetableStore
	resolver  *WeekResolver
	projector *ScheduleProjector
	clock     Clock
	logger    *zap.Logger
}

// NewTimetableService 创建 TimetableService 实例
func NewTimetableService(store *TimetableStore, resolver *WeekResolver, projector *ScheduleProjector, clock Clock, logger *zap.Logger) TimetableService {
	return &timetableService{
		TimetableStore: store,
		resolver:       resolver,
		projector:      projector,
		clock:          clock,
		logger:         logger,
	}
}

func (s *timetableService) Now() time.Time {
	return s.clock.Now()
}

func (s *timetableService) Day(date time.Time) *dto.DayScheduleResponse {
	key := date.Format(model.DateLayout)
	v := s.resolver.Resolve(date)

	var temporary bool
	s.view(func(snap *model.Snapshot) {
		_, temporary = snap.Overrides.TempSchedules[key]
	})

	resp := &dto.DayScheduleResponse{
		Date:          key,
		Weekday:       model.WeekdayOf(date).String(),
		WeekType:      v,
		WeekTypeLabel: v.Label(),
		Temporary:     temporary,
		Courses:       s.projector.Project(date),
	}
	if n, ok := s.resolver.WeekNumber(date); ok {
		resp.WeekNumber = &n
	}
	return resp
}

func (s *timetableService) WeekType(date time.Time) *dto.WeekTypeResponse {
	v := s.resolver.Resolve(date)
	resp := &dto.WeekTypeResponse{
		Date:     date.Format(model.DateLayout),
		WeekType: v,
		Label:    v.Label(),
	}
	if n, ok := s.resolver.WeekNumber(date); ok {
		resp.WeekNumber = &n
	}
	return resp
}

// ════════════════════════════════════════════════════════════
// SwapCourses 交换课程
// ════════════════════════════════════════════════════════════
//
// 永久交换直接修改课程模板；临时交换在今天的投影上交换内容，
// 结果保存为今天的临时课表。找不到任一课程时静默忽略。

func (s *timetableService) SwapCourses(ctx context.Context, a, b model.CourseKey, permanent bool) (bool, error) {
	if permanent {
		return s.TimetableStore.SwapCourses(ctx, a, b)
	}

	now := s.clock.Now()
	occs := s.projector.Project(now)
	i, j := indexOfOccurrence(occs, a), indexOfOccurrence(occs, b)
	if i < 0 || j < 0 || i == j {
		s.logger.Debug("临时交换未找到今天的课程，忽略", zap.Any("a", a), zap.Any("b", b))
		return false, nil
	}
	model.SwapOccurrenceContent(&occs[i], &occs[j])

	if err := s.SetTempSchedule(ctx, now.Format(model.DateLayout), occs); err != nil {
		return false, err
	}
	return true, nil
}

// indexOfOccurrence 按 (开始时间, 名称) 在当天课表中定位
func indexOfOccurrence(occs []model.Occurrence, key model.CourseKey) int {
	start := model.NormalizeClock(key.StartTime)
	for i, o := range occs {
		if o.StartTime == start && o.Name == key.Name {
			return i
		}
	}
	return -1
}
