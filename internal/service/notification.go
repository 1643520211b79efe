package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ziyi127/SCS/internal/model"
)

// NotificationSink 提醒事件接收方，实现不得阻塞
type NotificationSink interface {
	Notify(ctx context.Context, event model.ReminderEvent)
}

// NotificationSinkFunc 函数适配器
type NotificationSinkFunc func(ctx context.Context, event model.ReminderEvent)

// Notify 调用 f
func (f NotificationSinkFunc) Notify(ctx context.Context, event model.ReminderEvent) {
	f(ctx, event)
}

// ── LogSink ──

// LogSink 将提醒写入日志
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink 创建日志接收方
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Notify 记录一条 info 日志
func (s *LogSink) Notify(_ context.Context, e model.ReminderEvent) {
	s.logger.Info(e.Title,
		zap.String("id", e.ID),
		zap.String("kind", string(e.Kind)),
		zap.String("course", e.Occurrence.Name),
		zap.String("time", e.Occurrence.StartTime+"-"+e.Occurrence.EndTime),
		zap.String("sound", e.Sound),
		zap.String("message", e.Message),
	)
}

// ── EventHub ──

// EventHub 把提醒广播给订阅者（SSE 连接），并保留最近若干条
type EventHub struct {
	mu     sync.RWMutex
	subs   map[int]chan model.ReminderEvent
	nextID int
	recent []model.ReminderEvent
	size   int
	logger *zap.Logger
}

// NewEventHub 创建 EventHub，size 为保留的最近事件条数
func NewEventHub(size int, logger *zap.Logger) *EventHub {
	if size <= 0 {
		size = 50
	}
	return &EventHub{
		subs:   make(map[int]chan model.ReminderEvent),
		size:   size,
		logger: logger,
	}
}

// Notify 记录事件并非阻塞地分发；订阅者缓冲区满时丢弃
func (h *EventHub) Notify(_ context.Context, e model.ReminderEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.recent = append(h.recent, e)
	if len(h.recent) > h.size {
		h.recent = append([]model.ReminderEvent{}, h.recent[len(h.recent)-h.size:]...)
	}

	for id, ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.logger.Warn("订阅者缓冲区已满，丢弃提醒", zap.Int("subscriber", id), zap.String("event", e.ID))
		}
	}
}

// Subscribe 订阅提醒事件，返回的 cancel 会关闭通道
func (h *EventHub) Subscribe(buffer int) (<-chan model.ReminderEvent, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan model.ReminderEvent, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Recent 最近的提醒，按时间升序
func (h *EventHub) Recent() []model.ReminderEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]model.ReminderEvent{}, h.recent...)
}

// Subscribers 当前订阅者数量
func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
