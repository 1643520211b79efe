package service

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ziyi127/SCS/config"
	"github.com/ziyi127/SCS/internal/model"
)

type reminderFixture struct {
	store   *TimetableStore
	clock   *fixedClock
	weather *stubWeather
	sink    *recordingSink
	engine  *ReminderEngine
}

func newReminderFixture(t *testing.T, now string, settings ReminderSettings) *reminderFixture {
	t.Helper()
	clock := newFixedClock(at(now))
	store := newTestStore(t, newMockSnapshotRepo())
	distance := NewStaticDistanceProvider(testDistances)
	projector := NewScheduleProjector(store, clock, distance, zap.NewNop())

	f := &reminderFixture{
		store:   store,
		clock:   clock,
		weather: &stubWeather{w: model.DefaultWeather("北京")},
		sink:    &recordingSink{},
	}
	f.engine = NewReminderEngine(settings, projector, clock, distance, f.weather, zap.NewNop(), f.sink)
	f.engine.fileExists = func(string) bool { return true }
	return f
}

func defaultSettings() ReminderSettings {
	return ReminderSettings{BaseMinutes: 5, EnableExtraTime: true, SoundType: config.SoundDefault, SoundsDir: "sounds"}
}

func kinds(events []model.ReminderEvent) []model.ReminderKind {
	out := make([]model.ReminderKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

// ════════════════════════════════════════════════════════════
// 上课前
// ════════════════════════════════════════════════════════════

func TestTick_PreClassWithExtraTime(t *testing.T) {
	f := newReminderFixture(t, "2024-09-02 09:46", defaultSettings())
	c := course("物理", model.Monday, model.WeekBoth, "10:00", "11:00")
	c.Classroom = "实验楼203"
	c.Teacher = "王老师"
	mustAddCourse(t, f.store, c)
	ctx := context.Background()

	// 5 + 800/100 = 13 分钟
	if evs := f.engine.Tick(ctx); len(evs) != 0 {
		t.Fatalf("提前 14 分钟不应提醒, 实际 %v", kinds(evs))
	}

	f.clock.Set(at("2024-09-02 09:47"))
	evs := f.engine.Tick(ctx)
	if len(evs) != 1 || evs[0].Kind != model.ReminderPreClass {
		t.Fatalf("提前 13 分钟应触发一次上课提醒, 实际 %v", kinds(evs))
	}
	ev := evs[0]
	if ev.ID == "" || ev.Title != "上课提醒" || ev.Occurrence.Name != "物理" {
		t.Errorf("事件字段错误: %+v", ev)
	}
	for _, want := range []string{"即将上课: 物理", "时间: 10:00-11:00", "教师: 王老师", "教室: 实验楼203", "⚠️ 距离较远，约800米，建议提前8分钟出发"} {
		if !strings.Contains(ev.Message, want) {
			t.Errorf("提醒内容缺少 %q:\n%s", want, ev.Message)
		}
	}
	if !strings.Contains(ev.Message, "当前天气: 获取天气失败 N/A℃") {
		t.Errorf("默认天气也应出现在提醒中:\n%s", ev.Message)
	}
	if ev.Sound != filepath.Join("sounds", "default_notification.wav") {
		t.Errorf("音效错误: %s", ev.Sound)
	}

	// 同一门课只提醒一次
	for _, now := range []string{"2024-09-02 09:47:30", "2024-09-02 09:55", "2024-09-02 09:59:59"} {
		f.clock.Set(at(now))
		if evs := f.engine.Tick(ctx); len(evs) != 0 {
			t.Errorf("%s 不应重复提醒, 实际 %v", now, kinds(evs))
		}
	}
	if len(f.sink.events) != 1 {
		t.Errorf("接收方应收到 1 条提醒, 实际 %d", len(f.sink.events))
	}
}

func TestTick_PreClassWithoutExtraTime(t *testing.T) {
	s := defaultSettings()
	s.EnableExtraTime = false
	f := newReminderFixture(t, "2024-09-02 09:54", s)
	c := course("物理", model.Monday, model.WeekBoth, "10:00", "11:00")
	c.Classroom = "实验楼203"
	mustAddCourse(t, f.store, c)

	if evs := f.engine.Tick(context.Background()); len(evs) != 0 {
		t.Fatalf("关闭额外时间时提前 6 分钟不应提醒")
	}
	f.clock.Set(at("2024-09-02 09:55"))
	if evs := f.engine.Tick(context.Background()); len(evs) != 1 {
		t.Fatalf("提前 5 分钟应提醒, 实际 %v", kinds(evs))
	}
}

func TestTick_PreClassWeatherHint(t *testing.T) {
	f := newReminderFixture(t, "2024-09-02 09:57", defaultSettings())
	temp := 18
	f.weather.w = model.Weather{Location: "北京", Temp: &temp, Description: "小雨", Source: model.WeatherLive}
	mustAddCourse(t, f.store, course("英语", model.Monday, model.WeekBoth, "10:00", "11:00"))

	evs := f.engine.Tick(context.Background())
	if len(evs) != 1 {
		t.Fatalf("期望 1 条提醒, 实际 %d", len(evs))
	}
	for _, want := range []string{"当前天气: 小雨 18℃", "☔ 记得带伞"} {
		if !strings.Contains(evs[0].Message, want) {
			t.Errorf("提醒内容缺少 %q:\n%s", want, evs[0].Message)
		}
	}
}

func TestWeatherHint(t *testing.T) {
	hot, cold, mild := 35, 2, 20
	tests := []struct {
		name string
		w    model.Weather
		want string
	}{
		{"雨", model.Weather{Description: "Light rain", Temp: &hot}, "☔ 记得带伞"},
		{"雪", model.Weather{Description: "小雪", Temp: &cold}, "❄️ 注意保暖，路面可能湿滑"},
		{"高温", model.Weather{Description: "晴", Temp: &hot}, "🔥 天气炎热，注意防暑"},
		{"低温", model.Weather{Description: "晴", Temp: &cold}, "❄️ 天气寒冷，注意保暖"},
		{"无提示", model.Weather{Description: "多云", Temp: &mild}, ""},
		{"无温度", model.Weather{Description: "多云"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := weatherHint(tt.w); got != tt.want {
				t.Errorf("期望 %q, 实际 %q", tt.want, got)
			}
		})
	}
}

// ════════════════════════════════════════════════════════════
// 下课前与长课休息
// ════════════════════════════════════════════════════════════

func TestTick_EndClassRoomChange(t *testing.T) {
	f := newReminderFixture(t, "2024-09-02 09:29", defaultSettings())
	a := course("数学", model.Monday, model.WeekBoth, "08:00", "09:30")
	a.Classroom = "教学楼A101"
	b := course("英语", model.Monday, model.WeekBoth, "09:35", "11:00")
	b.Classroom = "实验楼203"
	b.Notes = "带词典"
	mustAddCourse(t, f.store, a)
	mustAddCourse(t, f.store, b)

	evs := f.engine.Tick(context.Background())
	var end *model.ReminderEvent
	for i := range evs {
		if evs[i].Kind == model.ReminderEndClass {
			end = &evs[i]
		}
	}
	if end == nil {
		t.Fatalf("应触发下课提醒, 实际 %v", kinds(evs))
	}
	for _, want := range []string{"即将下课: 数学", "下节课: 英语 (09:35)", "教室: 实验楼203", "⚠️ 需要换教室! 距离约800米，时间紧张，请立即前往!", "备注: 带词典"} {
		if !strings.Contains(end.Message, want) {
			t.Errorf("下课提醒缺少 %q:\n%s", want, end.Message)
		}
	}
	if end.Sound != filepath.Join("sounds", "class_end.wav") {
		t.Errorf("下课音效错误: %s", end.Sound)
	}
}

func TestBuildEndClassMessage(t *testing.T) {
	cur := model.Occurrence{Course: course("数学", model.Monday, model.WeekBoth, "08:00", "09:30")}
	cur.Classroom = "教学楼A101"

	if msg := buildEndClassMessage(cur, nil, 0); !strings.Contains(msg, "今日无更多课程安排") {
		t.Errorf("没有下节课时提示错误:\n%s", msg)
	}

	next := model.Occurrence{Course: course("英语", model.Monday, model.WeekBoth, "09:50", "11:00")}
	next.Classroom = "实验楼203"
	if msg := buildEndClassMessage(cur, &next, 800); !strings.Contains(msg, "预计需要8分钟") {
		t.Errorf("时间充裕时应给出预计时间:\n%s", msg)
	}

	next.Classroom = "教学楼A101"
	if msg := buildEndClassMessage(cur, &next, 800); strings.Contains(msg, "换教室") {
		t.Errorf("同一教室不应提示换教室:\n%s", msg)
	}

	next.Classroom = "教学楼B201"
	if msg := buildEndClassMessage(cur, &next, 150); strings.Contains(msg, "换教室") {
		t.Errorf("距离较近不应提示换教室:\n%s", msg)
	}
}

func TestTick_MidClassBreak(t *testing.T) {
	f := newReminderFixture(t, "2024-09-02 09:00:30", defaultSettings())
	f.engine.fileExists = func(string) bool { return false }
	mustAddCourse(t, f.store, course("实验", model.Monday, model.WeekBoth, "08:00", "10:00"))
	mustAddCourse(t, f.store, course("英语", model.Monday, model.WeekBoth, "13:00", "14:30")) // 恰好 90 分钟

	evs := f.engine.Tick(context.Background())
	if len(evs) != 1 || evs[0].Kind != model.ReminderMidClassBreak {
		t.Fatalf("应触发一次长课休息提醒, 实际 %v", kinds(evs))
	}
	if !strings.Contains(evs[0].Message, "已经上了一半的课程") {
		t.Errorf("休息提醒内容错误: %s", evs[0].Message)
	}
	// 音效不存在时回退默认
	if evs[0].Sound != filepath.Join("sounds", "default_notification.wav") {
		t.Errorf("音效应回退到默认, 实际 %s", evs[0].Sound)
	}

	f.clock.Set(at("2024-09-02 13:45"))
	if evs := f.engine.Tick(context.Background()); len(evs) != 0 {
		t.Errorf("90 分钟的课程不应提醒休息, 实际 %v", kinds(evs))
	}
}

// ════════════════════════════════════════════════════════════
// 临时课表
// ════════════════════════════════════════════════════════════

func TestTick_TempScheduleReplacesTemplate(t *testing.T) {
	f := newReminderFixture(t, "2024-09-02 15:53", defaultSettings())
	mustAddCourse(t, f.store, course("数学", model.Monday, model.WeekBoth, "16:00", "17:00"))
	ctx := context.Background()

	banhui := model.Occurrence{Course: model.Course{Name: "班会", StartTime: "16:00", EndTime: "16:45", Classroom: "教学楼A101"}}
	if err := f.store.SetTempSchedule(ctx, "2024-09-02", []model.Occurrence{banhui}); err != nil {
		t.Fatal(err)
	}

	// 5 + 200/100 = 7 分钟
	evs := f.engine.Tick(ctx)
	if len(evs) != 1 || evs[0].Kind != model.ReminderPreClass || evs[0].Occurrence.Name != "班会" {
		t.Fatalf("应按临时课表触发上课提醒, 实际 %+v", evs)
	}
	if evs[0].Occurrence.Day != model.Monday {
		t.Errorf("临时课程的星期应取自日期: %+v", evs[0].Occurrence)
	}
	if _, err := json.Marshal(evs[0]); err != nil {
		t.Errorf("提醒事件应能序列化: %v", err)
	}

	f.clock.Set(at("2024-09-02 16:44"))
	evs = f.engine.Tick(ctx)
	if len(evs) != 1 || evs[0].Kind != model.ReminderEndClass {
		t.Fatalf("应按临时课表触发下课提醒, 实际 %v", kinds(evs))
	}
	if !strings.Contains(evs[0].Message, "即将下课: 班会") || !strings.Contains(evs[0].Message, "今日无更多课程安排") {
		t.Errorf("下课提醒内容错误:\n%s", evs[0].Message)
	}

	f.clock.Set(at("2024-09-02 16:59"))
	if evs := f.engine.Tick(ctx); len(evs) != 0 {
		t.Errorf("被替换的模板课程不应提醒, 实际 %v", kinds(evs))
	}
}

func TestTick_AfterTemporarySwap(t *testing.T) {
	f := newReminderFixture(t, "2024-09-02 07:00", defaultSettings())
	a := course("数学", model.Monday, model.WeekBoth, "08:00", "09:30")
	a.Classroom = "实验楼203"
	b := course("英语", model.Monday, model.WeekBoth, "10:00", "11:30")
	b.Classroom = "教学楼A101"
	mustAddCourse(t, f.store, a)
	mustAddCourse(t, f.store, b)
	ctx := context.Background()

	logger := zap.NewNop()
	distance := NewStaticDistanceProvider(testDistances)
	svc := NewTimetableService(f.store,
		NewWeekResolver(f.store, logger),
		NewScheduleProjector(f.store, f.clock, distance, logger),
		f.clock, logger)
	if swapped, err := svc.SwapCourses(ctx, a.Key(), b.Key(), false); err != nil || !swapped {
		t.Fatalf("临时交换失败: %v %v", swapped, err)
	}

	// 08:00 的时段换成英语，教室教学楼A101，提前 7 分钟
	f.clock.Set(at("2024-09-02 07:53"))
	evs := f.engine.Tick(ctx)
	if len(evs) != 1 || evs[0].Kind != model.ReminderPreClass || evs[0].Occurrence.Name != "英语" {
		t.Fatalf("应提醒交换后的课程, 实际 %+v", evs)
	}
	if !strings.Contains(evs[0].Message, "时间: 08:00-09:30") {
		t.Errorf("交换后应保留原时间槽:\n%s", evs[0].Message)
	}

	f.clock.Set(at("2024-09-02 09:29"))
	var end *model.ReminderEvent
	evs = f.engine.Tick(ctx)
	for i := range evs {
		if evs[i].Kind == model.ReminderEndClass {
			end = &evs[i]
		}
	}
	if end == nil {
		t.Fatalf("应触发下课提醒, 实际 %v", kinds(evs))
	}
	for _, want := range []string{"即将下课: 英语", "下节课: 数学 (10:00)", "教室: 实验楼203"} {
		if !strings.Contains(end.Message, want) {
			t.Errorf("下课提醒缺少 %q:\n%s", want, end.Message)
		}
	}
}

// ════════════════════════════════════════════════════════════
// 去重、跨天与下一节课
// ════════════════════════════════════════════════════════════

func TestTick_ResetsAtMidnight(t *testing.T) {
	f := newReminderFixture(t, "2024-09-02 09:57", defaultSettings())
	mustAddCourse(t, f.store, course("英语", model.Monday, model.WeekBoth, "10:00", "11:00"))
	mustAddCourse(t, f.store, course("英语", model.Tuesday, model.WeekBoth, "10:00", "11:00"))
	ctx := context.Background()

	if evs := f.engine.Tick(ctx); len(evs) != 1 {
		t.Fatalf("周一应提醒一次, 实际 %d", len(evs))
	}
	f.clock.Set(at("2024-09-03 09:57"))
	if evs := f.engine.Tick(ctx); len(evs) != 1 {
		t.Fatalf("周二应再次提醒, 实际 %d", len(evs))
	}
	if len(f.engine.fired) != 1 {
		t.Errorf("跨天后应只保留当天的记录, 实际 %d", len(f.engine.fired))
	}
}

func TestTick_SinksInOrder(t *testing.T) {
	f := newReminderFixture(t, "2024-09-02 09:59", defaultSettings())
	mustAddCourse(t, f.store, course("数学", model.Monday, model.WeekBoth, "08:00", "10:00"))
	mustAddCourse(t, f.store, course("英语", model.Monday, model.WeekBoth, "10:03", "11:00"))

	var order []string
	f.engine.AddSink(NotificationSinkFunc(func(_ context.Context, e model.ReminderEvent) {
		order = append(order, e.Occurrence.Name+"/"+string(e.Kind))
	}))

	evs := f.engine.Tick(context.Background())
	want := []string{"数学/end_class", "英语/pre_class"}
	if len(order) != len(want) || order[0] != want[0] || order[1] != want[1] {
		t.Errorf("期望分发顺序 %v, 实际 %v", want, order)
	}
	if len(evs) != 2 || len(f.sink.events) != 2 {
		t.Errorf("每个接收方都应收到全部提醒")
	}
}

func TestNextCourse(t *testing.T) {
	occ := func(name, start, end string) model.Occurrence {
		return model.Occurrence{Course: course(name, model.Monday, model.WeekBoth, start, end), Date: "2024-09-02"}
	}
	today := []model.Occurrence{
		occ("体育", "07:00", "07:45"),
		occ("数学", "08:00", "09:30"),
		occ("化学", "14:00", "15:00"),
		occ("英语", "10:00", "11:00"),
	}
	e := &ReminderEngine{}

	next := e.NextCourse(today[1], today)
	if next == nil || next.Name != "英语" {
		t.Errorf("数学之后应为英语, 实际 %+v", next)
	}
	if next := e.NextCourse(today[2], today); next != nil {
		t.Errorf("最后一节课之后应为空, 实际 %+v", next)
	}
	if next := e.NextCourse(today[0], today); next == nil || next.Name != "数学" {
		t.Errorf("体育之后应为数学, 实际 %+v", next)
	}
}

func TestPreClassSound(t *testing.T) {
	tests := []struct {
		soundType string
		custom    string
		want      string
	}{
		{config.SoundGentle, "", filepath.Join("sounds", "gentle_notification.wav")},
		{config.SoundUrgent, "", filepath.Join("sounds", "urgent_notification.wav")},
		{config.SoundCustom, "/tmp/ding.wav", "/tmp/ding.wav"},
		{config.SoundCustom, "", filepath.Join("sounds", "default_notification.wav")},
		{"unknown", "", filepath.Join("sounds", "default_notification.wav")},
	}
	for _, tt := range tests {
		e := &ReminderEngine{settings: ReminderSettings{SoundType: tt.soundType, CustomSoundFile: tt.custom, SoundsDir: "sounds"}}
		if got := e.preClassSound(); got != tt.want {
			t.Errorf("%s: 期望 %s, 实际 %s", tt.soundType, tt.want, got)
		}
	}
}
