package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ziyi127/SCS/internal/model"
)

func sampleSnapshot() *model.Snapshot {
	snap := model.NewSnapshot()
	snap.Courses = []model.Course{
		{Name: "高等数学", Color: "#4a86e8", Teacher: "张老师", StartTime: "08:00", EndTime: "09:30", Day: model.Monday, WeekType: model.WeekOdd, Classroom: "实验楼203"},
		{Name: "大学英语", Color: "#ff9900", StartTime: "10:00", EndTime: "11:30", Day: model.Monday, WeekType: model.WeekBoth},
	}
	snap.SubjectLibrary["高等数学"] = model.SubjectInfo{Color: "#4a86e8", Teacher: "张老师"}
	snap.Overrides.SemesterStartDate = "2024-09-01"
	snap.Overrides.SpecialDates["2024-10-12"] = model.WeekEven
	snap.Overrides.TempWeekTypes["2024-10-08"] = model.WeekOdd
	snap.Overrides.TempSchedules["2024-10-09"] = []model.Occurrence{
		{Course: snap.Courses[1], Date: "2024-10-09"},
	}
	snap.EnsureInit()
	return snap
}

func TestFileSnapshotRepo_LoadMissing(t *testing.T) {
	repo := NewFileSnapshotRepo(filepath.Join(t.TempDir(), "nope.json"))
	_, err := repo.Load(context.Background())
	if !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("期望 ErrSnapshotNotFound, 实际: %v", err)
	}
}

func TestFileSnapshotRepo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "course_data.json")
	repo := NewFileSnapshotRepo(path)
	ctx := context.Background()

	in := sampleSnapshot()
	if err := repo.Save(ctx, in); err != nil {
		t.Fatalf("Save 失败: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("文件未写入: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("文件权限期望 0600, 实际 %v", info.Mode().Perm())
	}

	out, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if len(out.Courses) != 2 || out.Courses[0] != in.Courses[0] || out.Courses[1] != in.Courses[1] {
		t.Errorf("课程列表不一致: %+v", out.Courses)
	}
	if len(out.Schedule["Monday"][model.WeekOdd]) != 1 || len(out.Schedule["Monday"][model.WeekBoth]) != 1 {
		t.Errorf("schedule 未正确重建: %+v", out.Schedule["Monday"])
	}
	if out.SubjectLibrary["高等数学"].Teacher != "张老师" {
		t.Errorf("科目库不一致: %+v", out.SubjectLibrary)
	}
	if out.Overrides.SemesterStartDate != "2024-09-01" {
		t.Errorf("学期起始日期不一致: %s", out.Overrides.SemesterStartDate)
	}
	if out.Overrides.SpecialDates["2024-10-12"] != model.WeekEven || out.Overrides.TempWeekTypes["2024-10-08"] != model.WeekOdd {
		t.Errorf("周次覆盖不一致: %+v", out.Overrides)
	}
	if got := out.Overrides.TempSchedules["2024-10-09"]; len(got) != 1 || got[0].Name != "大学英语" {
		t.Errorf("临时课表不一致: %+v", got)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("目录中不应残留临时文件, 实际 %d 个条目", len(entries))
	}
}

func TestFileSnapshotRepo_LegacyLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "course_data.json")
	legacy := `{
    "courses": [
        {"name": "物理", "color": "#00ff00", "teacher": null, "notes": null,
         "start_time": "14:00", "end_time": "15:30", "day": "Wednesday", "week_type": "even", "equipment": null}
    ],
    "schedule": {},
    "subject_library": {"物理": {"color": "#00ff00", "teacher": null, "notes": null, "equipment": null}},
    "semester_start_date": "2025-02-24",
    "special_dates": {"2025-03-01": "odd"}
}`
	if err := os.WriteFile(path, []byte(legacy), 0o600); err != nil {
		t.Fatal(err)
	}

	snap, err := NewFileSnapshotRepo(path).Load(context.Background())
	if err != nil {
		t.Fatalf("加载旧版课表失败: %v", err)
	}
	if len(snap.Courses) != 1 || snap.Courses[0].Day != model.Wednesday {
		t.Errorf("旧版课程解析错误: %+v", snap.Courses)
	}
	if snap.Overrides.SemesterStartDate != "2025-02-24" {
		t.Errorf("旧版学期起始日期未迁移: %q", snap.Overrides.SemesterStartDate)
	}
	if snap.Overrides.SpecialDates["2025-03-01"] != model.WeekOdd {
		t.Errorf("旧版特殊日期未迁移: %+v", snap.Overrides.SpecialDates)
	}
	if snap.Overrides.TempSchedules == nil {
		t.Error("缺失的 map 应被初始化")
	}
}

func TestFileSnapshotRepo_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "course_data.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := NewFileSnapshotRepo(path).Load(context.Background())
	if err == nil || errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("损坏文件应返回解析错误, 实际: %v", err)
	}
}
