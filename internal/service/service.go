package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ziyi127/SCS/config"
	"github.com/ziyi127/SCS/internal/repository"
	"github.com/ziyi127/SCS/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Store        *TimetableStore
	Timetable    TimetableService
	ImportExport ImportExportService
	Weather      WeatherProvider
	Reminder     *ReminderEngine
	Events       *EventHub
	Clock        Clock
}

// NewService 创建 Service 聚合
// rdb 为 nil 时天气缓存只保存在内存中
func NewService(
	ctx context.Context,
	cfg *config.Config,
	repo *repository.Repository,
	rdb *redis.Client,
	logger *zap.Logger,
) (*Service, error) {
	loc, err := cfg.Reminder.Location()
	if err != nil {
		return nil, fmt.Errorf("加载时区失败: %w", err)
	}
	clock := SystemClock{Location: loc}

	store, err := NewTimetableStore(ctx, repo.Snapshot, cfg.Semester.StartDate, logger.Named("store"))
	if err != nil {
		return nil, err
	}

	distance := NewStaticDistanceProvider(cfg.Distance.Classrooms)
	resolver := NewWeekResolver(store, logger)
	projector := NewScheduleProjector(store, clock, distance, logger)

	var cache WeatherCache
	if rdb != nil {
		cache = NewRedisWeatherCache(rdb, cfg.Weather.Location)
	} else {
		cache = NewMemoryWeatherCache()
	}
	weather := NewWeatherService(cfg.Weather, cache, clock, logger.Named("weather"))

	events := NewEventHub(cfg.Notification.RecentSize, logger)
	reminder := NewReminderEngine(
		NewReminderSettings(cfg.Reminder, cfg.Notification),
		projector, clock, distance, weather, logger.Named("reminder"),
		NewLogSink(logger.Named("notify")), events,
	)

	return &Service{
		Store:        store,
		Timetable:    NewTimetableService(store, resolver, projector, clock, logger),
		ImportExport: NewImportExportService(store, clock, cfg.Semester.TotalWeeks, logger.Named("import")),
		Weather:      weather,
		Reminder:     reminder,
		Events:       events,
		Clock:        clock,
	}, nil
}
