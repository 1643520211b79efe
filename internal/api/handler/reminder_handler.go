package handler

import (
	"context"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ziyi127/SCS/internal/model"
	"github.com/ziyi127/SCS/pkg/response"
)

// ReminderFeed 已触发提醒的来源
type ReminderFeed interface {
	Recent() []model.ReminderEvent
	Subscribe(buffer int) (<-chan model.ReminderEvent, func())
}

// ReminderTicker 手动触发一次提醒检查
type ReminderTicker interface {
	Tick(ctx context.Context) []model.ReminderEvent
}

// ReminderHandler 提醒 Handler
type ReminderHandler struct {
	feed      ReminderFeed
	ticker    ReminderTicker
	keepalive time.Duration
}

// NewReminderHandler 创建 ReminderHandler 实例
func NewReminderHandler(feed ReminderFeed, ticker ReminderTicker) *ReminderHandler {
	return &ReminderHandler{feed: feed, ticker: ticker, keepalive: 30 * time.Second}
}

// Recent 最近触发的提醒，旧的在前
// GET /api/v1/reminders
func (h *ReminderHandler) Recent(c *gin.Context) {
	events := h.feed.Recent()
	if events == nil {
		events = []model.ReminderEvent{}
	}
	response.OK(c, events)
}

// Check 立即检查一次，返回本次触发的提醒
// POST /api/v1/reminders/check
func (h *ReminderHandler) Check(c *gin.Context) {
	events := h.ticker.Tick(c.Request.Context())
	if events == nil {
		events = []model.ReminderEvent{}
	}
	response.OK(c, events)
}

// Stream 以 SSE 推送新触发的提醒，供悬浮窗弹出通知
// GET /api/v1/reminders/stream
func (h *ReminderHandler) Stream(c *gin.Context) {
	events, cancel := h.feed.Subscribe(16)
	defer cancel()

	ping := time.NewTicker(h.keepalive)
	defer ping.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(e.Kind), e)
			return true
		case t := <-ping.C:
			c.SSEvent("ping", t.Unix())
			return true
		}
	})
}
