package service

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziyi127/SCS/config"
	"github.com/ziyi127/SCS/internal/model"
)

const (
	// farDistance 超过该距离（米）时增加提前量并提示
	farDistance = 500
	// roomChangeDistance 换教室且超过该距离时提示
	roomChangeDistance = 200
	// longCourse 超过该时长的课程在中点提醒休息
	longCourse = 90 * time.Minute
)

// Projector 提醒引擎需要的课表投影能力
type Projector interface {
	Project(date time.Time) []model.Occurrence
}

// ReminderSettings 提醒引擎配置
type ReminderSettings struct {
	BaseMinutes     int
	EnableExtraTime bool
	SoundType       string
	CustomSoundFile string
	SoundsDir       string
}

// NewReminderSettings 从配置构造
func NewReminderSettings(r config.ReminderConfig, n config.NotificationConfig) ReminderSettings {
	return ReminderSettings{
		BaseMinutes:     r.Minutes,
		EnableExtraTime: r.EnableExtraTime,
		SoundType:       n.SoundType,
		CustomSoundFile: n.CustomSoundFile,
		SoundsDir:       n.SoundsDir,
	}
}

// ════════════════════════════════════════════════════════════
// ReminderEngine 上课、下课、长课休息提醒
// ════════════════════════════════════════════════════════════
//
// 每次 Tick 重新投影当天课表，满足条件的提醒每天每门课每类只触发一次；
// 跨过零点后清空已触发记录。

// ReminderEngine 课程提醒引擎
type ReminderEngine struct {
	settings  ReminderSettings
	projector Projector
	clock     Clock
	distance  DistanceProvider
	weather   WeatherProvider
	logger    *zap.Logger

	fileExists func(path string) bool

	mu    sync.Mutex
	sinks []NotificationSink
	day   string
	fired map[string]struct{}
}

// NewReminderEngine 创建提醒引擎
func NewReminderEngine(
	settings ReminderSettings,
	projector Projector,
	clock Clock,
	distance DistanceProvider,
	weather WeatherProvider,
	logger *zap.Logger,
	sinks ...NotificationSink,
) *ReminderEngine {
	return &ReminderEngine{
		settings:   settings,
		projector:  projector,
		clock:      clock,
		distance:   distance,
		weather:    weather,
		logger:     logger,
		fileExists: fileExists,
		sinks:      sinks,
		fired:      make(map[string]struct{}),
	}
}

// AddSink 注册通知接收方
func (e *ReminderEngine) AddSink(s NotificationSink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinks = append(e.sinks, s)
}

// Tick 检查一次并分发新触发的提醒，返回本次触发的事件
func (e *ReminderEngine) Tick(ctx context.Context) []model.ReminderEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	today := now.Format(model.DateLayout)
	if today != e.day {
		if e.day != "" {
			e.logger.Debug("日期变更，重置提醒记录", zap.String("from", e.day), zap.String("to", today))
		}
		e.day = today
		e.fired = make(map[string]struct{})
	}

	occs := e.projector.Project(now)
	var events []model.ReminderEvent

	for _, o := range occs {
		if o.Date == "" {
			o.Date = today
		}
		start := model.At(now, o.StartTime)
		end := model.At(now, o.EndTime)
		untilStart := start.Sub(now).Minutes()
		untilEnd := end.Sub(now).Minutes()

		// 上课前
		dist := e.distanceOf(o)
		lead := float64(e.settings.BaseMinutes + e.extraMinutes(dist))
		if untilStart > 0 && untilStart <= lead {
			if ev, ok := e.fire(now, o, model.ReminderPreClass); ok {
				ev.Message = buildPreClassMessage(o, dist, e.weather.Current(ctx))
				ev.Sound = e.preClassSound()
				events = append(events, ev)
			}
		}

		// 下课前
		if untilEnd > 0 && untilEnd <= 1 {
			if ev, ok := e.fire(now, o, model.ReminderEndClass); ok {
				next := e.NextCourse(o, occs)
				var nextDist int
				if next != nil {
					nextDist = e.distanceOf(*next)
				}
				ev.Message = buildEndClassMessage(o, next, nextDist)
				ev.Sound = e.soundOrDefault("class_end.wav")
				events = append(events, ev)
			}
		}

		// 长课中点休息
		if dur := o.Duration(); dur > longCourse {
			mid := start.Add(dur / 2)
			if math.Abs(now.Sub(mid).Minutes()) <= 1 {
				if ev, ok := e.fire(now, o, model.ReminderMidClassBreak); ok {
					ev.Message = buildMidClassMessage(o)
					ev.Sound = e.soundOrDefault("gentle_notification.wav")
					events = append(events, ev)
				}
			}
		}
	}

	for _, ev := range events {
		for _, s := range e.sinks {
			s.Notify(ctx, ev)
		}
	}
	return events
}

// fire 若该提醒今天尚未触发，记录并返回事件骨架
func (e *ReminderEngine) fire(now time.Time, o model.Occurrence, kind model.ReminderKind) (model.ReminderEvent, bool) {
	key := o.Identity() + "|" + string(kind)
	if _, ok := e.fired[key]; ok {
		return model.ReminderEvent{}, false
	}
	e.fired[key] = struct{}{}
	return model.ReminderEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		Title:      kind.Title(),
		Occurrence: o,
		FiredAt:    now,
	}, true
}

// NextCourse 返回 current 结束后最近开始的课程，没有则返回 nil
func (e *ReminderEngine) NextCourse(current model.Occurrence, today []model.Occurrence) *model.Occurrence {
	return nextCourse(current, today)
}

func nextCourse(current model.Occurrence, today []model.Occurrence) *model.Occurrence {
	end := current.EndMinutes()
	best := -1
	bestGap := 0
	for i, o := range today {
		if o.Identity() == current.Identity() {
			continue
		}
		gap := o.StartMinutes() - end
		if gap <= 0 {
			continue
		}
		if best < 0 || gap < bestGap {
			best, bestGap = i, gap
		}
	}
	if best < 0 {
		return nil
	}
	next := today[best]
	return &next
}

func (e *ReminderEngine) distanceOf(o model.Occurrence) int {
	if o.Classroom == "" {
		return 0
	}
	if d := e.distance.Distance(o.Classroom); d > 0 {
		return d
	}
	return o.Distance
}

// extraMinutes 教室较远时每 100 米增加 1 分钟
func (e *ReminderEngine) extraMinutes(distance int) int {
	if !e.settings.EnableExtraTime || distance <= farDistance {
		return 0
	}
	return distance / 100
}

// ── 音效 ──

var preClassSounds = map[string]string{
	config.SoundDefault: "default_notification.wav",
	config.SoundGentle:  "gentle_notification.wav",
	config.SoundUrgent:  "urgent_notification.wav",
}

func (e *ReminderEngine) preClassSound() string {
	if e.settings.SoundType == config.SoundCustom && e.settings.CustomSoundFile != "" {
		return e.settings.CustomSoundFile
	}
	name, ok := preClassSounds[e.settings.SoundType]
	if !ok {
		name = preClassSounds[config.SoundDefault]
	}
	return filepath.Join(e.settings.SoundsDir, name)
}

// soundOrDefault 音效文件不存在时回退到默认提示音
func (e *ReminderEngine) soundOrDefault(name string) string {
	p := filepath.Join(e.settings.SoundsDir, name)
	if e.fileExists(p) {
		return p
	}
	return filepath.Join(e.settings.SoundsDir, preClassSounds[config.SoundDefault])
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
