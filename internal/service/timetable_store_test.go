package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/ziyi127/SCS/internal/model"
	"github.com/ziyi127/SCS/internal/repository"
)

// ════════════════════════════════════════════════════════════
// 加载
// ════════════════════════════════════════════════════════════

func TestNewTimetableStore_EmptyIsPersisted(t *testing.T) {
	repo := newMockSnapshotRepo()
	store := newTestStore(t, repo)

	if len(store.Courses()) != 0 {
		t.Errorf("空存储应无课程")
	}
	if repo.saveCount() != 1 {
		t.Errorf("空存储应立即保存一次, 实际 %d 次", repo.saveCount())
	}
	if store.Subjects() == nil {
		t.Error("科目库应已初始化")
	}
}

func TestNewTimetableStore_SeedsSemesterStart(t *testing.T) {
	repo := newMockSnapshotRepo()
	store, err := NewTimetableStore(context.Background(), repo, "2024-09-01", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if got := store.Overrides().SemesterStartDate; got != "2024-09-01" {
		t.Errorf("期望学期起始日期 2024-09-01, 实际 %q", got)
	}

	// 已有数据时不覆盖
	store2, err := NewTimetableStore(context.Background(), repo, "2025-02-24", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if got := store2.Overrides().SemesterStartDate; got != "2024-09-01" {
		t.Errorf("已有学期起始日期不应被配置覆盖, 实际 %q", got)
	}
}

func TestNewTimetableStore_LoadError(t *testing.T) {
	repo := newMockSnapshotRepo()
	repo.loadErr = errors.New("磁盘损坏")
	if _, err := NewTimetableStore(context.Background(), repo, "", zap.NewNop()); err == nil {
		t.Fatal("读取失败应返回错误")
	}
}

func TestTimetableStore_ReloadRoundTrip(t *testing.T) {
	repo := newMockSnapshotRepo()
	store := newTestStore(t, repo)
	ctx := context.Background()

	mustAddCourse(t, store, course("数学", model.Monday, model.WeekOdd, "08:00", "09:30"))
	mustAddCourse(t, store, course("英语", model.Monday, model.WeekBoth, "10:00", "11:30"))
	if err := store.AddSubject(ctx, "物理", model.SubjectInfo{Teacher: "王老师"}); err != nil {
		t.Fatal(err)
	}

	reloaded := newTestStore(t, repo)
	a, b := store.Snapshot(), reloaded.Snapshot()
	if len(b.Courses) != 2 || b.Courses[0].Name != "数学" || b.Courses[1].Name != "英语" {
		t.Errorf("重新加载后课程不一致: %+v", b.Courses)
	}
	if len(b.Schedule["Monday"][model.WeekOdd]) != len(a.Schedule["Monday"][model.WeekOdd]) {
		t.Errorf("重新加载后 schedule 不一致")
	}
	if b.SubjectLibrary["物理"].Teacher != "王老师" {
		t.Errorf("重新加载后科目库不一致: %+v", b.SubjectLibrary)
	}
}

// ════════════════════════════════════════════════════════════
// 课程
// ════════════════════════════════════════════════════════════

func TestAddCourse_Normalizes(t *testing.T) {
	store := newTestStore(t, newMockSnapshotRepo())
	mustAddCourse(t, store, model.Course{Name: " 数学 ", Day: model.Monday, StartTime: "8:00", EndTime: "9:30"})

	c := store.Courses()[0]
	if c.Name != "数学" || c.StartTime != "08:00" || c.Color != model.DefaultCourseColor || c.WeekType != model.WeekBoth {
		t.Errorf("课程未规范化: %+v", c)
	}
}

func TestAddCourse_Conflict(t *testing.T) {
	repo := newMockSnapshotRepo()
	store := newTestStore(t, repo)
	mustAddCourse(t, store, course("数学", model.Monday, model.WeekOdd, "08:00", "09:30"))
	saves := repo.saveCount()

	err := store.AddCourse(context.Background(), course("物理", model.Monday, model.WeekBoth, "09:00", "10:00"))
	if !errors.Is(err, ErrCourseConflict) {
		t.Fatalf("期望 ErrCourseConflict, 实际 %v", err)
	}
	var ce *ConflictError
	if !errors.As(err, &ce) || ce.Existing.Name != "数学" {
		t.Errorf("ConflictError 应指明冲突课程: %v", err)
	}
	if len(store.Courses()) != 1 {
		t.Error("冲突时不应插入")
	}
	if repo.saveCount() != saves {
		t.Error("冲突时不应保存")
	}
}

func TestAddCourse_NonOverlappingNeverConflict(t *testing.T) {
	store := newTestStore(t, newMockSnapshotRepo())
	for _, day := range model.Weekdays {
		for h := 8; h < 20; h += 2 {
			c := course(fmt.Sprintf("课程%d-%d", day, h), day, model.WeekBoth,
				fmt.Sprintf("%02d:00", h), fmt.Sprintf("%02d:00", h+2))
			if hit := store.CheckTimeConflict(c); hit != nil {
				t.Fatalf("%s 不应与 %s 冲突", c.Name, hit.Name)
			}
			mustAddCourse(t, store, c)
		}
	}
	// 单双周互不冲突
	store2 := newTestStore(t, newMockSnapshotRepo())
	mustAddCourse(t, store2, course("数学", model.Tuesday, model.WeekOdd, "08:00", "09:30"))
	mustAddCourse(t, store2, course("物理", model.Tuesday, model.WeekEven, "08:00", "09:30"))
}

func TestAddCourse_Invalid(t *testing.T) {
	store := newTestStore(t, newMockSnapshotRepo())
	bad := []model.Course{
		course("", model.Monday, model.WeekBoth, "08:00", "09:00"),
		course("数学", model.Monday, model.WeekBoth, "10:00", "09:00"),
		course("数学", model.Monday, model.WeekBoth, "25:00", "26:00"),
		{Name: "数学", Day: model.Monday, WeekType: model.WeekBoth, StartTime: "08:00", EndTime: "09:00", Color: "red"},
	}
	for _, c := range bad {
		if err := store.AddCourse(context.Background(), c); !errors.Is(err, ErrCourseInvalid) {
			t.Errorf("%+v 期望 ErrCourseInvalid, 实际 %v", c, err)
		}
	}
}

func TestAddCourse_PersistFailureKeepsState(t *testing.T) {
	repo := newMockSnapshotRepo()
	store := newTestStore(t, repo)
	mustAddCourse(t, store, course("数学", model.Monday, model.WeekBoth, "08:00", "09:00"))

	repo.failSave = errors.New("磁盘已满")
	err := store.AddCourse(context.Background(), course("英语", model.Monday, model.WeekBoth, "10:00", "11:00"))
	if !errors.Is(err, ErrPersistFailed) {
		t.Fatalf("期望 ErrPersistFailed, 实际 %v", err)
	}
	if len(store.Courses()) != 1 {
		t.Error("保存失败时内存状态应保持不变")
	}
	if len(store.Snapshot().Schedule["Monday"][model.WeekBoth]) != 1 {
		t.Error("保存失败时 schedule 应保持不变")
	}
}

func TestRemoveCourse(t *testing.T) {
	store := newTestStore(t, newMockSnapshotRepo())
	ctx := context.Background()
	mustAddCourse(t, store, course("数学", model.Monday, model.WeekOdd, "08:00", "09:30"))

	key := model.CourseKey{Day: model.Monday, StartTime: "8:00", Name: "数学"}
	if err := store.RemoveCourse(ctx, key); err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	if len(store.Courses()) != 0 || len(store.Snapshot().Schedule["Monday"][model.WeekOdd]) != 0 {
		t.Error("删除后课程与 schedule 应为空")
	}
	if err := store.RemoveCourse(ctx, key); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("期望 ErrCourseNotFound, 实际 %v", err)
	}
}

func TestUpdateCourse(t *testing.T) {
	store := newTestStore(t, newMockSnapshotRepo())
	ctx := context.Background()
	mustAddCourse(t, store, course("数学", model.Monday, model.WeekBoth, "08:00", "09:30"))
	mustAddCourse(t, store, course("英语", model.Monday, model.WeekBoth, "10:00", "11:30"))

	// 与自身重叠不算冲突
	updated := course("数学", model.Monday, model.WeekBoth, "08:10", "09:40")
	updated.Classroom = "实验楼203"
	if err := store.UpdateCourse(ctx, model.CourseKey{Day: model.Monday, StartTime: "08:00", Name: "数学"}, updated); err != nil {
		t.Fatalf("编辑失败: %v", err)
	}
	if c := store.Courses()[0]; c.StartTime != "08:10" || c.Classroom != "实验楼203" {
		t.Errorf("编辑未生效: %+v", c)
	}

	clash := course("数学", model.Monday, model.WeekBoth, "09:00", "10:30")
	err := store.UpdateCourse(ctx, model.CourseKey{Day: model.Monday, StartTime: "08:10", Name: "数学"}, clash)
	if !errors.Is(err, ErrCourseConflict) {
		t.Errorf("期望冲突, 实际 %v", err)
	}
	err = store.UpdateCourse(ctx, model.CourseKey{Day: model.Friday, StartTime: "08:00", Name: "数学"}, updated)
	if !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("期望 ErrCourseNotFound, 实际 %v", err)
	}
}

func TestReplaceCourses_AllOrNothing(t *testing.T) {
	store := newTestStore(t, newMockSnapshotRepo())
	ctx := context.Background()
	mustAddCourse(t, store, course("旧课程", model.Friday, model.WeekBoth, "08:00", "09:00"))

	clashing := []model.Course{
		course("数学", model.Monday, model.WeekBoth, "08:00", "09:30"),
		course("物理", model.Monday, model.WeekOdd, "09:00", "10:00"),
	}
	if err := store.ReplaceCourses(ctx, clashing); !errors.Is(err, ErrCourseConflict) {
		t.Fatalf("期望冲突, 实际 %v", err)
	}
	if cs := store.Courses(); len(cs) != 1 || cs[0].Name != "旧课程" {
		t.Errorf("导入失败时应保留原课程: %+v", cs)
	}

	ok := []model.Course{
		course("数学", model.Monday, model.WeekOdd, "08:00", "09:30"),
		course("物理", model.Monday, model.WeekEven, "08:00", "09:30"),
	}
	if err := store.ReplaceCourses(ctx, ok); err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	if len(store.Courses()) != 2 {
		t.Errorf("期望 2 门课程, 实际 %d", len(store.Courses()))
	}
}

func TestSwapCourses_Permanent(t *testing.T) {
	repo := newMockSnapshotRepo()
	store := newTestStore(t, repo)
	ctx := context.Background()
	a := course("数学", model.Monday, model.WeekOdd, "08:00", "09:30")
	a.Classroom = "实验楼203"
	b := course("英语", model.Tuesday, model.WeekBoth, "10:00", "11:00")
	b.Teacher = "李老师"
	mustAddCourse(t, store, a)
	mustAddCourse(t, store, b)

	swapped, err := store.SwapCourses(ctx, a.Key(), b.Key())
	if err != nil || !swapped {
		t.Fatalf("交换失败: %v %v", swapped, err)
	}
	cs := store.Courses()
	if cs[0].Name != "英语" || cs[0].Teacher != "李老师" || cs[0].Day != model.Monday || cs[0].StartTime != "08:00" {
		t.Errorf("第一门课交换结果错误: %+v", cs[0])
	}
	if cs[1].Name != "数学" || cs[1].Classroom != "实验楼203" || cs[1].Day != model.Tuesday {
		t.Errorf("第二门课交换结果错误: %+v", cs[1])
	}

	// 找不到时静默忽略，不保存
	saves := repo.saveCount()
	swapped, err = store.SwapCourses(ctx, a.Key(), model.CourseKey{Day: model.Sunday, StartTime: "08:00", Name: "不存在"})
	if err != nil || swapped {
		t.Errorf("缺失课程应静默忽略: %v %v", swapped, err)
	}
	if repo.saveCount() != saves {
		t.Error("未交换时不应保存")
	}
}

// ════════════════════════════════════════════════════════════
// 科目库与日期覆盖
// ════════════════════════════════════════════════════════════

func TestSubjects_NoCascade(t *testing.T) {
	store := newTestStore(t, newMockSnapshotRepo())
	ctx := context.Background()
	mustAddCourse(t, store, course("数学", model.Monday, model.WeekBoth, "08:00", "09:30"))

	if err := store.AddSubject(ctx, "数学", model.SubjectInfo{Teacher: "张老师"}); err != nil {
		t.Fatal(err)
	}
	info, ok := store.GetSubjectInfo("数学")
	if !ok || info.Teacher != "张老师" || info.Color != model.DefaultCourseColor {
		t.Errorf("科目信息错误: %+v %v", info, ok)
	}
	if err := store.AddSubject(ctx, " ", model.SubjectInfo{}); !errors.Is(err, ErrSubjectInvalid) {
		t.Errorf("空名称应返回 ErrSubjectInvalid, 实际 %v", err)
	}
	if err := store.RemoveSubject(ctx, "数学"); err != nil {
		t.Fatal(err)
	}
	if len(store.Courses()) != 1 {
		t.Error("删除科目不应影响课程")
	}
	if err := store.RemoveSubject(ctx, "数学"); !errors.Is(err, ErrSubjectNotFound) {
		t.Errorf("期望 ErrSubjectNotFound, 实际 %v", err)
	}
}

func TestOverrides_Setters(t *testing.T) {
	store := newTestStore(t, newMockSnapshotRepo())
	ctx := context.Background()

	if err := store.SetSpecialDateOverride(ctx, "2024-09-10", model.WeekOdd); err != nil {
		t.Fatal(err)
	}
	if err := store.SetTempWeekType(ctx, "2024-09-10", model.WeekEven); err != nil {
		t.Fatal(err)
	}
	if err := store.SetSpecialDateOverride(ctx, "2024/09/10", model.WeekOdd); !errors.Is(err, ErrOverrideInvalid) {
		t.Errorf("非法日期应返回 ErrOverrideInvalid, 实际 %v", err)
	}
	if err := store.SetTempWeekType(ctx, "2024-09-10", model.WeekBoth); !errors.Is(err, ErrOverrideInvalid) {
		t.Errorf("both 不能作为覆盖值, 实际 %v", err)
	}
	if err := store.SetSemesterStartDate(ctx, "九月一日"); !errors.Is(err, ErrOverrideInvalid) {
		t.Errorf("非法学期起始日期应返回 ErrOverrideInvalid, 实际 %v", err)
	}

	ov := store.Overrides()
	if ov.SpecialDates["2024-09-10"] != model.WeekOdd || ov.TempWeekTypes["2024-09-10"] != model.WeekEven {
		t.Errorf("覆盖设置错误: %+v", ov)
	}

	if err := store.ClearSpecialDateOverride(ctx, "2024-09-10"); err != nil {
		t.Fatal(err)
	}
	if err := store.ClearTempWeekType(ctx, "2024-09-10"); err != nil {
		t.Fatal(err)
	}
	ov = store.Overrides()
	if len(ov.SpecialDates) != 0 || len(ov.TempWeekTypes) != 0 {
		t.Errorf("清除后应为空: %+v", ov)
	}
}

func TestTempSchedule_SetAndClear(t *testing.T) {
	store := newTestStore(t, newMockSnapshotRepo())
	ctx := context.Background()
	occ := []model.Occurrence{{Course: course("自习", model.Monday, model.WeekBoth, "8:00", "09:00")}}

	for _, d := range []string{"2024-09-02", "2024-09-03"} {
		if err := store.SetTempSchedule(ctx, d, occ); err != nil {
			t.Fatal(err)
		}
	}
	got := store.Overrides().TempSchedules["2024-09-02"]
	if len(got) != 1 || got[0].Date != "2024-09-02" || got[0].StartTime != "08:00" {
		t.Errorf("临时课表应补全日期并规范化时间: %+v", got)
	}

	if err := store.ClearTempSchedule(ctx, "2024-09-02"); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Overrides().TempSchedules["2024-09-02"]; ok {
		t.Error("指定日期的临时课表应被清除")
	}
	if err := store.ClearTempSchedule(ctx, ""); err != nil {
		t.Fatal(err)
	}
	if len(store.Overrides().TempSchedules) != 0 {
		t.Error("空日期应清除全部临时课表")
	}
}

func TestTempSchedule_DayFromDate(t *testing.T) {
	repo := repository.NewFileSnapshotRepo(filepath.Join(t.TempDir(), "data.json"))
	ctx := context.Background()
	store, err := NewTimetableStore(ctx, repo, "", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	occ := []model.Occurrence{{Course: model.Course{Name: "班会", StartTime: "16:00", EndTime: "16:45"}}}
	if err := store.SetTempSchedule(ctx, "2024-10-08", occ); err != nil {
		t.Fatalf("未指定星期的临时课表应能保存: %v", err)
	}
	got := store.Overrides().TempSchedules["2024-10-08"]
	if len(got) != 1 || got[0].Day != model.Tuesday || got[0].WeekType != model.WeekBoth {
		t.Errorf("星期应取自日期、周类型默认 both: %+v", got)
	}

	reloaded, err := NewTimetableStore(ctx, repo, "", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	back := reloaded.Overrides().TempSchedules["2024-10-08"]
	if len(back) != 1 || back[0].Name != "班会" || back[0].Day != model.Tuesday {
		t.Errorf("重新加载后临时课表不一致: %+v", back)
	}
}

func TestTempSchedule_RejectsInvalidCourse(t *testing.T) {
	store := newTestStore(t, newMockSnapshotRepo())
	ctx := context.Background()

	bad := [][]model.Occurrence{
		{{Course: model.Course{Name: "班会", StartTime: "16:45", EndTime: "16:00"}}},
		{{Course: model.Course{StartTime: "16:00", EndTime: "16:45"}}},
		{{Course: model.Course{Name: "班会", StartTime: "25:00", EndTime: "26:00"}}},
	}
	for _, occ := range bad {
		if err := store.SetTempSchedule(ctx, "2024-10-08", occ); !errors.Is(err, ErrOverrideInvalid) {
			t.Errorf("非法课程 %+v 应返回 ErrOverrideInvalid，实际 %v", occ[0].Course, err)
		}
	}
	if len(store.Overrides().TempSchedules) != 0 {
		t.Error("校验失败时不应写入临时课表")
	}
}

func TestOnChange(t *testing.T) {
	store := newTestStore(t, newMockSnapshotRepo())
	calls := 0
	store.OnChange(func() {
		calls++
		// 回调在锁外执行，可以安全读取
		_ = store.Courses()
	})
	mustAddCourse(t, store, course("数学", model.Monday, model.WeekBoth, "08:00", "09:00"))
	_ = store.AddCourse(context.Background(), course("冲突", model.Monday, model.WeekBoth, "08:30", "09:30"))
	if calls != 1 {
		t.Errorf("期望监听被调用 1 次, 实际 %d", calls)
	}
}
