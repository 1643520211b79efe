package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ziyi127/SCS/internal/model"
	"github.com/ziyi127/SCS/internal/repository"
)

// ── Mock SnapshotRepository ──

type mockSnapshotRepo struct {
	mu       sync.Mutex
	snap     *model.Snapshot
	saves    int
	loadErr  error
	failSave error
}

func newMockSnapshotRepo() *mockSnapshotRepo {
	return &mockSnapshotRepo{}
}

func (m *mockSnapshotRepo) Load(_ context.Context) (*model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.snap == nil {
		return nil, repository.ErrSnapshotNotFound
	}
	return m.snap.Clone(), nil
}

func (m *mockSnapshotRepo) Save(_ context.Context, snap *model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return m.failSave
	}
	// 与真实仓储一样经过 JSON 序列化
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	var decoded model.Snapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	decoded.EnsureInit()
	m.snap = &decoded
	m.saves++
	return nil
}

func (m *mockSnapshotRepo) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// ── 固定时钟 ──

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFixedClock(t time.Time) *fixedClock { return &fixedClock{t: t} }

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// ── 天气桩 ──

type stubWeather struct {
	w        model.Weather
	refreshs int
}

func (s *stubWeather) Current(_ context.Context) model.Weather { return s.w }

func (s *stubWeather) Refresh(_ context.Context) model.Weather {
	s.refreshs++
	return s.w
}

// ── 记录型通知接收方 ──

type recordingSink struct {
	mu     sync.Mutex
	events []model.ReminderEvent
}

func (r *recordingSink) Notify(_ context.Context, e model.ReminderEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// ── 测试辅助 ──

// at 解析 UTC 时间，格式 2006-01-02 15:04 或 2006-01-02 15:04:05
func at(s string) time.Time {
	layout := "2006-01-02 15:04"
	if len(s) > len(layout) {
		layout = "2006-01-02 15:04:05"
	}
	t, err := time.ParseInLocation(layout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestStore(t *testing.T, repo *mockSnapshotRepo) *TimetableStore {
	t.Helper()
	store, err := NewTimetableStore(context.Background(), repo, "", zap.NewNop())
	if err != nil {
		t.Fatalf("创建 TimetableStore 失败: %v", err)
	}
	return store
}

func mustAddCourse(t *testing.T, store *TimetableStore, c model.Course) {
	t.Helper()
	if err := store.AddCourse(context.Background(), c); err != nil {
		t.Fatalf("添加课程 %s 失败: %v", c.Name, err)
	}
}

func course(name string, day model.Weekday, wt model.WeekVariant, start, end string) model.Course {
	return model.Course{Name: name, Day: day, WeekType: wt, StartTime: start, EndTime: end}
}

var testDistances = map[string]int{
	"实验楼203":  800,
	"教学楼A101": 200,
	"教学楼B201": 300,
	"图书馆301":  600,
	"体育馆":     1000,
}
