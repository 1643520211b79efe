package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WeatherSource 天气数据来源
type WeatherSource string

const (
	WeatherLive    WeatherSource = "live"
	WeatherCached  WeatherSource = "cache"
	WeatherDefault WeatherSource = "default"
)

// Weather 天气快照；取不到的数值字段为 nil
type Weather struct {
	Location    string        `json:"location"`
	Temp        *int          `json:"temp"`
	FeelsLike   *int          `json:"feels_like"`
	Description string        `json:"description"`
	Humidity    *int          `json:"humidity"`
	WindSpeed   *float64      `json:"wind_speed"`
	Pressure    *int          `json:"pressure"`
	Visibility  *int          `json:"visibility"`
	Icon        string        `json:"icon"`
	LastUpdate  time.Time     `json:"last_update"`
	Source      WeatherSource `json:"source"`
}

// DefaultWeather 所有数据源都不可用时的占位值
func DefaultWeather(location string) Weather {
	return Weather{
		Location:    location,
		Description: "获取天气失败",
		Icon:        "01d",
		Source:      WeatherDefault,
	}
}

// Summary 悬浮窗展示用的天气摘要
func (w Weather) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s°C %s\n", w.Location, intOrNA(w.Temp), w.Description)
	fmt.Fprintf(&b, "体感温度: %s°C 湿度: %s%%\n", intOrNA(w.FeelsLike), intOrNA(w.Humidity))
	wind := "N/A"
	if w.WindSpeed != nil {
		wind = strconv.FormatFloat(*w.WindSpeed, 'f', -1, 64)
	}
	update := "N/A"
	if !w.LastUpdate.IsZero() {
		update = w.LastUpdate.Format("15:04")
	}
	fmt.Fprintf(&b, "风速: %sm/s 更新时间: %s", wind, update)
	return b.String()
}

func intOrNA(p *int) string {
	if p == nil {
		return "N/A"
	}
	return strconv.Itoa(*p)
}
