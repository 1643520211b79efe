package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ziyi127/SCS/internal/model"
)

// ReminderTicker 提醒引擎的单次检查
type ReminderTicker interface {
	Tick(ctx context.Context) []model.ReminderEvent
}

// WeatherRefresher 天气刷新
type WeatherRefresher interface {
	Refresh(ctx context.Context) model.Weather
}

// Options 定时任务表达式（标准 5 段 cron）
type Options struct {
	TickSpec    string
	RefreshSpec string
	Location    *time.Location
}

// Scheduler 定时驱动提醒检查与天气刷新
// 同一任务上一次未结束时跳过本次，任务 panic 会被恢复并记录
type Scheduler struct {
	cron     *cron.Cron
	opts     Options
	reminder ReminderTicker
	weather  WeatherRefresher
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New 创建 Scheduler
func New(opts Options, reminder ReminderTicker, weather WeatherRefresher, logger *zap.Logger) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	cl := cronLogger{logger.Sugar()}
	c := cron.New(
		cron.WithLocation(opts.Location),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		cron.WithLogger(cl),
	)
	return &Scheduler{
		cron:     c,
		opts:     opts,
		reminder: reminder,
		weather:  weather,
		logger:   logger,
	}
}

// Start 注册任务并启动，不阻塞；ctx 取消或调用 Stop 后停止派发
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	if _, err := s.cron.AddFunc(s.opts.TickSpec, s.tick); err != nil {
		return fmt.Errorf("注册提醒任务失败: %w", err)
	}
	if s.weather != nil && s.opts.RefreshSpec != "" {
		if _, err := s.cron.AddFunc(s.opts.RefreshSpec, s.refreshWeather); err != nil {
			return fmt.Errorf("注册天气刷新任务失败: %w", err)
		}
	}

	s.cron.Start()
	s.logger.Info("定时任务已启动",
		zap.String("timezone", s.opts.Location.String()),
		zap.String("tick", s.opts.TickSpec),
		zap.String("weather_refresh", s.opts.RefreshSpec),
	)
	return nil
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("定时任务已停止")
}

// Entries 已注册的任务数
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) tick() {
	events := s.reminder.Tick(s.context())
	if len(events) > 0 {
		s.logger.Debug("提醒已触发", zap.Int("count", len(events)))
	}
}

func (s *Scheduler) refreshWeather() {
	w := s.weather.Refresh(s.context())
	s.logger.Debug("天气已刷新", zap.String("source", string(w.Source)), zap.String("description", w.Description))
}

func (s *Scheduler) context() context.Context {
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// ── cron.Logger 适配 ──

type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
