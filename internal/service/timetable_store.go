package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ziyi127/SCS/internal/model"
	"github.com/ziyi127/SCS/internal/repository"
)

// ── 课表存储业务错误 ──

var (
	ErrCourseInvalid   = errors.New("课程信息无效")
	ErrCourseConflict  = errors.New("课程时间冲突")
	ErrCourseNotFound  = errors.New("课程不存在")
	ErrSubjectInvalid  = errors.New("科目信息无效")
	ErrSubjectNotFound = errors.New("科目不存在")
	ErrOverrideInvalid = errors.New("日期覆盖设置无效")
	ErrPersistFailed   = errors.New("课表保存失败")
)

// errNoChange mutate 回调返回它表示无需保存
var errNoChange = errors.New("no change")

// ConflictError 新课程与已有课程时间冲突
type ConflictError struct {
	Course   model.Course
	Existing model.Course
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s（%s %s %s-%s）与 %s（%s %s-%s）时间冲突",
		e.Course.Name, e.Course.Day.Label(), e.Course.WeekType.Label(), e.Course.StartTime, e.Course.EndTime,
		e.Existing.Name, e.Existing.WeekType.Label(), e.Existing.StartTime, e.Existing.EndTime)
}

// Unwrap 使 errors.Is(err, ErrCourseConflict) 成立
func (e *ConflictError) Unwrap() error { return ErrCourseConflict }

// ════════════════════════════════════════════════════════════
// TimetableStore 课程、科目库与日期覆盖的唯一持有者
// ════════════════════════════════════════════════════════════
//
// 每次修改先在副本上完成，保存成功后才替换内存状态；
// 保存失败时返回 ErrPersistFailed，内存保持修改前的样子。

// TimetableStore 课表存储
type TimetableStore struct {
	mu        sync.RWMutex
	snap      *model.Snapshot
	repo      repository.SnapshotRepository
	listeners []func()
	logger    *zap.Logger
}

// NewTimetableStore 加载已有快照；不存在时初始化空课表并立即保存
// semesterStart 非空且快照中未设置学期起始日期时作为初始值
func NewTimetableStore(ctx context.Context, repo repository.SnapshotRepository, semesterStart string, logger *zap.Logger) (*TimetableStore, error) {
	s := &TimetableStore{repo: repo, logger: logger}

	snap, err := repo.Load(ctx)
	switch {
	case errors.Is(err, repository.ErrSnapshotNotFound):
		logger.Info("未找到课表数据，初始化空课表")
		snap = model.NewSnapshot()
		if err := repo.Save(ctx, snap); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPersistFailed, err)
		}
	case err != nil:
		return nil, fmt.Errorf("加载课表失败: %w", err)
	}
	snap.EnsureInit()
	s.snap = snap

	if snap.Overrides.SemesterStartDate == "" && semesterStart != "" {
		if err := s.SetSemesterStartDate(ctx, semesterStart); err != nil {
			return nil, err
		}
	}

	logger.Info("课表加载完成",
		zap.Int("courses", len(snap.Courses)),
		zap.Int("subjects", len(snap.SubjectLibrary)),
		zap.String("semester_start", s.snap.Overrides.SemesterStartDate),
	)
	return s, nil
}

// OnChange 注册变更监听，回调在锁外执行
func (s *TimetableStore) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// view 在读锁内访问当前快照，回调中不得保留引用
func (s *TimetableStore) view(fn func(snap *model.Snapshot)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.snap)
}

// mutate 在副本上执行修改，保存成功后提交
func (s *TimetableStore) mutate(ctx context.Context, op string, fn func(next *model.Snapshot) error) error {
	s.mu.Lock()

	next := s.snap.Clone()
	if err := fn(next); err != nil {
		s.mu.Unlock()
		if errors.Is(err, errNoChange) {
			return nil
		}
		return err
	}
	next.Schedule = model.BuildSchedule(next.Courses)

	if err := s.repo.Save(ctx, next); err != nil {
		s.mu.Unlock()
		s.logger.Error("保存课表失败", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	s.snap = next
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	s.logger.Debug("课表已更新", zap.String("op", op))
	for _, l := range listeners {
		l()
	}
	return nil
}

// ── 读取 ──

// Snapshot 当前快照的深拷贝
func (s *TimetableStore) Snapshot() *model.Snapshot {
	var c *model.Snapshot
	s.view(func(snap *model.Snapshot) { c = snap.Clone() })
	return c
}

// Courses 课程列表副本，按添加顺序
func (s *TimetableStore) Courses() []model.Course {
	var out []model.Course
	s.view(func(snap *model.Snapshot) { out = append([]model.Course{}, snap.Courses...) })
	return out
}

// Overrides 日期覆盖副本
func (s *TimetableStore) Overrides() model.Overrides {
	return s.Snapshot().Overrides
}

// Subjects 科目库副本
func (s *TimetableStore) Subjects() map[string]model.SubjectInfo {
	out := make(map[string]model.SubjectInfo)
	s.view(func(snap *model.Snapshot) {
		for k, v := range snap.SubjectLibrary {
			out[k] = v
		}
	})
	return out
}

// GetSubjectInfo 查询科目库条目
func (s *TimetableStore) GetSubjectInfo(name string) (model.SubjectInfo, bool) {
	var (
		info model.SubjectInfo
		ok   bool
	)
	s.view(func(snap *model.Snapshot) { info, ok = snap.SubjectLibrary[name] })
	return info, ok
}

// CheckTimeConflict 返回与 c 冲突的已有课程，无冲突返回 nil
func (s *TimetableStore) CheckTimeConflict(c model.Course) *model.Course {
	c.Normalize()
	var hit *model.Course
	s.view(func(snap *model.Snapshot) { hit = findConflict(snap.Courses, c, -1) })
	return hit
}

// ── 课程 ──

// AddCourse 添加课程，校验失败或冲突时不做任何修改
func (s *TimetableStore) AddCourse(ctx context.Context, c model.Course) error {
	c.Normalize()
	if err := model.ValidateCourse(c); err != nil {
		return fmt.Errorf("%w: %v", ErrCourseInvalid, err)
	}
	return s.mutate(ctx, "add_course", func(next *model.Snapshot) error {
		if hit := findConflict(next.Courses, c, -1); hit != nil {
			return &ConflictError{Course: c, Existing: *hit}
		}
		next.Courses = append(next.Courses, c)
		return nil
	})
}

// UpdateCourse 按自然键替换课程，冲突检查排除自身
func (s *TimetableStore) UpdateCourse(ctx context.Context, key model.CourseKey, c model.Course) error {
	c.Normalize()
	if err := model.ValidateCourse(c); err != nil {
		return fmt.Errorf("%w: %v", ErrCourseInvalid, err)
	}
	return s.mutate(ctx, "update_course", func(next *model.Snapshot) error {
		idx := indexOfCourse(next.Courses, key)
		if idx < 0 {
			return ErrCourseNotFound
		}
		if hit := findConflict(next.Courses, c, idx); hit != nil {
			return &ConflictError{Course: c, Existing: *hit}
		}
		next.Courses[idx] = c
		return nil
	})
}

// RemoveCourse 按 (星期, 开始时间, 名称) 删除课程
func (s *TimetableStore) RemoveCourse(ctx context.Context, key model.CourseKey) error {
	return s.mutate(ctx, "remove_course", func(next *model.Snapshot) error {
		idx := indexOfCourse(next.Courses, key)
		if idx < 0 {
			return ErrCourseNotFound
		}
		next.Courses = append(next.Courses[:idx], next.Courses[idx+1:]...)
		return nil
	})
}

// ReplaceCourses 整体替换课程列表（导入），任一课程非法或互相冲突则全部不生效
func (s *TimetableStore) ReplaceCourses(ctx context.Context, courses []model.Course) error {
	normalized, err := prepareCourses(courses)
	if err != nil {
		return err
	}
	return s.mutate(ctx, "replace_courses", func(next *model.Snapshot) error {
		next.Courses = normalized
		return nil
	})
}

// ImportSnapshot 用完整快照替换当前数据（JSON 导入）
func (s *TimetableStore) ImportSnapshot(ctx context.Context, in *model.Snapshot) error {
	imported := in.Clone()
	normalized, err := prepareCourses(imported.Courses)
	if err != nil {
		return err
	}
	imported.Courses = normalized
	for date, occs := range imported.Overrides.TempSchedules {
		list, err := prepareTempSchedule(date, occs)
		if err != nil {
			return err
		}
		imported.Overrides.TempSchedules[date] = list
	}
	imported.EnsureInit()
	return s.mutate(ctx, "import_snapshot", func(next *model.Snapshot) error {
		*next = *imported
		return nil
	})
}

// SwapCourses 永久交换两门课的内容，双方保留各自时间槽
// 任一课程不存在时静默忽略，返回是否发生了交换
func (s *TimetableStore) SwapCourses(ctx context.Context, a, b model.CourseKey) (bool, error) {
	swapped := false
	err := s.mutate(ctx, "swap_courses", func(next *model.Snapshot) error {
		i, j := indexOfCourse(next.Courses, a), indexOfCourse(next.Courses, b)
		if i < 0 || j < 0 || i == j {
			return errNoChange
		}
		next.Courses[i].SwapContent(&next.Courses[j])
		swapped = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if !swapped {
		s.logger.Debug("交换课程未找到匹配项，忽略", zap.Any("a", a), zap.Any("b", b))
	}
	return swapped, nil
}

// ── 科目库 ──

// AddSubject 新增或覆盖科目库条目，不影响已有课程
func (s *TimetableStore) AddSubject(ctx context.Context, name string, info model.SubjectInfo) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: 科目名称不能为空", ErrSubjectInvalid)
	}
	if info.Color == "" {
		info.Color = model.DefaultCourseColor
	}
	if err := model.ValidateStruct(info); err != nil {
		return fmt.Errorf("%w: %v", ErrSubjectInvalid, err)
	}
	return s.mutate(ctx, "add_subject", func(next *model.Snapshot) error {
		next.SubjectLibrary[name] = info
		return nil
	})
}

// RemoveSubject 删除科目库条目，不级联删除课程
func (s *TimetableStore) RemoveSubject(ctx context.Context, name string) error {
	return s.mutate(ctx, "remove_subject", func(next *model.Snapshot) error {
		if _, ok := next.SubjectLibrary[name]; !ok {
			return ErrSubjectNotFound
		}
		delete(next.SubjectLibrary, name)
		return nil
	})
}

// ── 日期覆盖 ──

// SetSemesterStartDate 设置学期第一周第一天，空字符串表示清除
func (s *TimetableStore) SetSemesterStartDate(ctx context.Context, date string) error {
	date = strings.TrimSpace(date)
	if date != "" {
		if _, err := parseDate(date); err != nil {
			return err
		}
	}
	return s.mutate(ctx, "set_semester_start", func(next *model.Snapshot) error {
		if next.Overrides.SemesterStartDate == date {
			return errNoChange
		}
		next.Overrides.SemesterStartDate = date
		return nil
	})
}

// SetSpecialDateOverride 指定某天按单周或双周处理
func (s *TimetableStore) SetSpecialDateOverride(ctx context.Context, date string, v model.WeekVariant) error {
	if err := checkParityOverride(date, v); err != nil {
		return err
	}
	return s.mutate(ctx, "set_special_date", func(next *model.Snapshot) error {
		next.Overrides.SpecialDates[date] = v
		return nil
	})
}

// ClearSpecialDateOverride 清除特殊日期设置
func (s *TimetableStore) ClearSpecialDateOverride(ctx context.Context, date string) error {
	return s.mutate(ctx, "clear_special_date", func(next *model.Snapshot) error {
		if _, ok := next.Overrides.SpecialDates[date]; !ok {
			return errNoChange
		}
		delete(next.Overrides.SpecialDates, date)
		return nil
	})
}

// SetTempWeekType 临时调整某天的单双周，优先级高于特殊日期
func (s *TimetableStore) SetTempWeekType(ctx context.Context, date string, v model.WeekVariant) error {
	if err := checkParityOverride(date, v); err != nil {
		return err
	}
	return s.mutate(ctx, "set_temp_week_type", func(next *model.Snapshot) error {
		next.Overrides.TempWeekTypes[date] = v
		return nil
	})
}

// ClearTempWeekType 清除临时单双周
func (s *TimetableStore) ClearTempWeekType(ctx context.Context, date string) error {
	return s.mutate(ctx, "clear_temp_week_type", func(next *model.Snapshot) error {
		if _, ok := next.Overrides.TempWeekTypes[date]; !ok {
			return errNoChange
		}
		delete(next.Overrides.TempWeekTypes, date)
		return nil
	})
}

// SetTempSchedule 用给定课程列表整体替换某天的课表
func (s *TimetableStore) SetTempSchedule(ctx context.Context, date string, occs []model.Occurrence) error {
	list, err := prepareTempSchedule(date, occs)
	if err != nil {
		return err
	}
	return s.mutate(ctx, "set_temp_schedule", func(next *model.Snapshot) error {
		next.Overrides.TempSchedules[date] = list
		return nil
	})
}

// ClearTempSchedule 清除某天的临时课表，date 为空时清除全部
func (s *TimetableStore) ClearTempSchedule(ctx context.Context, date string) error {
	return s.mutate(ctx, "clear_temp_schedule", func(next *model.Snapshot) error {
		if date == "" {
			if len(next.Overrides.TempSchedules) == 0 {
				return errNoChange
			}
			next.Overrides.TempSchedules = make(map[string][]model.Occurrence)
			return nil
		}
		if _, ok := next.Overrides.TempSchedules[date]; !ok {
			return errNoChange
		}
		delete(next.Overrides.TempSchedules, date)
		return nil
	})
}

// ── 辅助函数 ──

// findConflict 在 courses 中查找与 c 冲突的课程，skip 为需要排除的下标
func findConflict(courses []model.Course, c model.Course, skip int) *model.Course {
	for i := range courses {
		if i == skip {
			continue
		}
		if c.ConflictsWith(courses[i]) {
			hit := courses[i]
			return &hit
		}
	}
	return nil
}

func indexOfCourse(courses []model.Course, key model.CourseKey) int {
	for i, c := range courses {
		if key.Matches(c) {
			return i
		}
	}
	return -1
}

// prepareCourses 规范化并校验一批课程，检查批内冲突
func prepareCourses(courses []model.Course) ([]model.Course, error) {
	out := make([]model.Course, 0, len(courses))
	for i, c := range courses {
		c.Normalize()
		if err := model.ValidateCourse(c); err != nil {
			return nil, fmt.Errorf("%w: 第 %d 门课程 %q: %v", ErrCourseInvalid, i+1, c.Name, err)
		}
		if hit := findConflict(out, c, -1); hit != nil {
			return nil, &ConflictError{Course: c, Existing: *hit}
		}
		out = append(out, c)
	}
	return out, nil
}

// prepareTempSchedule 补全某天临时课表的日期与星期，并逐条校验
func prepareTempSchedule(date string, occs []model.Occurrence) ([]model.Occurrence, error) {
	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	list := make([]model.Occurrence, len(occs))
	for i, o := range occs {
		// 星期由日期决定，请求中的 day 可省略
		if o.Day == 0 {
			o.Day = model.WeekdayOf(day)
		}
		o.Course.Normalize()
		if err := model.ValidateCourse(o.Course); err != nil {
			return nil, fmt.Errorf("%w: %s 第 %d 门课程 %q: %v", ErrOverrideInvalid, date, i+1, o.Name, err)
		}
		o.Date = date
		list[i] = o
	}
	return list, nil
}

func parseDate(date string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: 日期格式应为 YYYY-MM-DD: %q", ErrOverrideInvalid, date)
	}
	return t, nil
}

func checkParityOverride(date string, v model.WeekVariant) error {
	if _, err := parseDate(date); err != nil {
		return err
	}
	if !v.IsParity() {
		return fmt.Errorf("%w: 周类型只能是 odd 或 even", ErrOverrideInvalid)
	}
	return nil
}
