package service

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ziyi127/SCS/internal/model"
)

// comingSoonWindow 距开课不超过该时长标记为即将开始
const comingSoonWindow = 15 * time.Minute

// ScheduleProjector 把课程模板投影到具体日期
type ScheduleProjector struct {
	store    *TimetableStore
	clock    Clock
	distance DistanceProvider
	logger   *zap.Logger
}

// NewScheduleProjector 创建 ScheduleProjector
func NewScheduleProjector(store *TimetableStore, clock Clock, distance DistanceProvider, logger *zap.Logger) *ScheduleProjector {
	return &ScheduleProjector{store: store, clock: clock, distance: distance, logger: logger}
}

// Today 今天的课程
func (p *ScheduleProjector) Today() []model.Occurrence {
	return p.Project(p.clock.Now())
}

// Project 返回 date 当天的课程，按开始时间升序
//
// 当天存在临时课表时原样返回；否则取该星期对应周类型与 both 的课程，
// 并按当前时间计算进行中、进度与即将开始标记
func (p *ScheduleProjector) Project(date time.Time) []model.Occurrence {
	dateKey := date.Format(model.DateLayout)

	var (
		temp    []model.Occurrence
		hasTemp bool
		courses []model.Course
		variant model.WeekVariant
	)
	p.store.view(func(snap *model.Snapshot) {
		if t, ok := snap.Overrides.TempSchedules[dateKey]; ok {
			temp = append([]model.Occurrence{}, t...)
			hasTemp = true
			return
		}
		variant = resolveWeek(date, &snap.Overrides, p.logger)
		bucket := snap.Schedule[model.WeekdayOf(date).String()]
		courses = append(courses, bucket[variant]...)
		courses = append(courses, bucket[model.WeekBoth]...)
	})
	if hasTemp {
		return temp
	}

	now := p.clock.Now()
	today := sameDay(date, now)
	past := !today && dayStart(date).Before(dayStart(now.In(date.Location())))

	out := make([]model.Occurrence, 0, len(courses))
	for _, c := range courses {
		o := model.Occurrence{Course: c, Date: dateKey}
		if c.Classroom != "" {
			o.Distance = p.distance.Distance(c.Classroom)
		}
		switch {
		case today:
			fillStatus(&o, date, now)
		case past:
			o.Progress = 100
		}
		out = append(out, o)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartMinutes() < out[j].StartMinutes()
	})
	return out
}

// fillStatus 计算进行中、进度与即将开始
func fillStatus(o *model.Occurrence, date, now time.Time) {
	start := model.At(date, o.StartTime)
	end := model.At(date, o.EndTime)

	switch {
	case now.Before(start):
		o.Progress = 0
		o.ComingSoon = start.Sub(now) <= comingSoonWindow
	case now.After(end):
		o.Progress = 100
	default:
		o.IsCurrent = true
		total := end.Sub(start)
		if total > 0 {
			o.Progress = int(100 * now.Sub(start) / total)
		}
	}
}
