package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ziyi127/SCS/internal/dto"
	"github.com/ziyi127/SCS/internal/service"
	"github.com/ziyi127/SCS/pkg/response"
)

// WeatherHandler 天气 Handler
type WeatherHandler struct {
	svc service.WeatherProvider
}

// NewWeatherHandler 创建 WeatherHandler 实例
func NewWeatherHandler(svc service.WeatherProvider) *WeatherHandler {
	return &WeatherHandler{svc: svc}
}

// Current 最近一次的天气快照，获取失败时为默认天气
// GET /api/v1/weather
func (h *WeatherHandler) Current(c *gin.Context) {
	response.OK(c, dto.NewWeatherResponse(h.svc.Current(c.Request.Context())))
}

// Refresh 立即重新获取天气
// POST /api/v1/weather/refresh
func (h *WeatherHandler) Refresh(c *gin.Context) {
	response.OK(c, dto.NewWeatherResponse(h.svc.Refresh(c.Request.Context())))
}
