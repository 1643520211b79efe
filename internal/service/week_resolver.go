package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/ziyi127/SCS/internal/model"
)

// WeekResolver 判断某天是单周还是双周
//
// 优先级：临时单双周 > 特殊日期 > 学期起始日期推算 > ISO 周次奇偶
type WeekResolver struct {
	store  *TimetableStore
	logger *zap.Logger
}

// NewWeekResolver 创建 WeekResolver
func NewWeekResolver(store *TimetableStore, logger *zap.Logger) *WeekResolver {
	return &WeekResolver{store: store, logger: logger}
}

// Resolve 返回 date 所在日期的周类型，只会是 odd 或 even
func (r *WeekResolver) Resolve(date time.Time) model.WeekVariant {
	var v model.WeekVariant
	r.store.view(func(snap *model.Snapshot) {
		v = resolveWeek(date, &snap.Overrides, r.logger)
	})
	return v
}

// WeekNumber 返回相对学期起始日期的周次（从 1 开始）
// 未设置学期起始日期、格式非法或日期早于学期开始时返回 false
func (r *WeekResolver) WeekNumber(date time.Time) (int, bool) {
	var anchor string
	r.store.view(func(snap *model.Snapshot) { anchor = snap.Overrides.SemesterStartDate })
	if anchor == "" {
		return 0, false
	}
	start, err := time.Parse(model.DateLayout, anchor)
	if err != nil {
		return 0, false
	}
	days := daysBetween(start, date)
	if days < 0 {
		return 0, false
	}
	return days/7 + 1, true
}

// resolveWeek 纯函数：只依赖日期与覆盖记录
func resolveWeek(date time.Time, ov *model.Overrides, logger *zap.Logger) model.WeekVariant {
	key := date.Format(model.DateLayout)

	if v, ok := ov.TempWeekTypes[key]; ok && v.IsParity() {
		return v
	}
	if v, ok := ov.SpecialDates[key]; ok && v.IsParity() {
		return v
	}

	if ov.SemesterStartDate != "" {
		start, err := time.Parse(model.DateLayout, ov.SemesterStartDate)
		if err == nil {
			days := daysBetween(start, date)
			if days < 0 {
				return model.WeekOdd
			}
			return model.WeekVariantOf(days/7 + 1)
		}
		logger.Warn("学期起始日期格式错误，按 ISO 周次判断",
			zap.String("semester_start_date", ov.SemesterStartDate), zap.Error(err))
	}

	_, isoWeek := date.ISOWeek()
	return model.WeekVariantOf(isoWeek)
}

// daysBetween 按日历日计算 to - from，忽略时分秒与夏令时
func daysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
