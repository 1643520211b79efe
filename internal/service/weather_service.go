package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/ziyi127/SCS/config"
	"github.com/ziyi127/SCS/internal/model"
	"github.com/ziyi127/SCS/pkg/redis"
)

// ErrWeatherCacheMiss 缓存中没有天气数据
var ErrWeatherCacheMiss = errors.New("天气缓存为空")

// WeatherProvider 天气数据来源
// Current 只返回最近一次的快照，不发起网络请求；Refresh 负责拉取
type WeatherProvider interface {
	Current(ctx context.Context) model.Weather
	Refresh(ctx context.Context) model.Weather
}

// WeatherCache 最近一次成功获取的天气
type WeatherCache interface {
	Get(ctx context.Context) (model.Weather, error)
	Set(ctx context.Context, w model.Weather) error
}

// ── 内存缓存 ──

type memoryWeatherCache struct {
	mu sync.RWMutex
	w  *model.Weather
}

// NewMemoryWeatherCache 进程内天气缓存
func NewMemoryWeatherCache() WeatherCache {
	return &memoryWeatherCache{}
}

func (c *memoryWeatherCache) Get(_ context.Context) (model.Weather, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.w == nil {
		return model.Weather{}, ErrWeatherCacheMiss
	}
	return *c.w, nil
}

func (c *memoryWeatherCache) Set(_ context.Context, w model.Weather) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.w = &w
	return nil
}

// ── Redis 缓存 ──

// redisWeatherTTL 缓存保留时长，过期后只能回退到默认值
const redisWeatherTTL = 24 * time.Hour

type redisWeatherCache struct {
	client *redis.Client
	key    string
}

// NewRedisWeatherCache 基于 Redis 的天气缓存，多个实例可共享
func NewRedisWeatherCache(client *redis.Client, location string) WeatherCache {
	return &redisWeatherCache{client: client, key: "weather:" + location}
}

func (c *redisWeatherCache) Get(ctx context.Context) (model.Weather, error) {
	b, err := c.client.Get(ctx, c.key)
	if err != nil {
		if errors.Is(err, redis.ErrCacheMiss) {
			return model.Weather{}, ErrWeatherCacheMiss
		}
		return model.Weather{}, err
	}
	var w model.Weather
	if err := json.Unmarshal(b, &w); err != nil {
		return model.Weather{}, fmt.Errorf("解析天气缓存失败: %w", err)
	}
	return w, nil
}

func (c *redisWeatherCache) Set(ctx context.Context, w model.Weather) error {
	b, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key, b, redisWeatherTTL)
}

// ════════════════════════════════════════════════════════════
// WeatherService
// ════════════════════════════════════════════════════════════
//
// 数据来源按顺序降级：实时接口 → 缓存 → 默认占位值。
// 配置了 api_key 时使用 OpenWeatherMap，否则使用 wttr.in。

type weatherService struct {
	cfg    config.WeatherConfig
	client *http.Client
	cache  WeatherCache
	now    func() time.Time
	logger *zap.Logger

	mu      sync.RWMutex
	current *model.Weather
}

// NewWeatherService 创建天气服务
func NewWeatherService(cfg config.WeatherConfig, cache WeatherCache, clock Clock, logger *zap.Logger) WeatherProvider {
	if cache == nil {
		cache = NewMemoryWeatherCache()
	}
	return &weatherService{
		cfg:    cfg,
		client: &http.Client{},
		cache:  cache,
		now:    clock.Now,
		logger: logger,
	}
}

// Current 返回最近一次快照；尚未刷新过时尝试读取缓存
func (s *weatherService) Current(ctx context.Context) model.Weather {
	s.mu.RLock()
	cur := s.current
	s.mu.RUnlock()
	if cur != nil {
		return *cur
	}
	if w, err := s.cache.Get(ctx); err == nil {
		w.Source = model.WeatherCached
		return w
	}
	return model.DefaultWeather(s.cfg.Location)
}

// Refresh 拉取最新天气；缓存未过期时直接复用
func (s *weatherService) Refresh(ctx context.Context) model.Weather {
	cached, cacheErr := s.cache.Get(ctx)
	if cacheErr == nil && s.now().Sub(cached.LastUpdate) < s.cfg.CacheTTL {
		cached.Source = model.WeatherCached
		return s.store(cached)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	w, err := s.fetch(fetchCtx)
	if err != nil {
		s.logger.Warn("获取天气失败", zap.String("location", s.cfg.Location), zap.Error(err))
		if cacheErr == nil {
			cached.Source = model.WeatherCached
			return s.store(cached)
		}
		return s.store(model.DefaultWeather(s.cfg.Location))
	}

	w.Location = s.cfg.Location
	w.LastUpdate = s.now()
	w.Source = model.WeatherLive
	if err := s.cache.Set(ctx, w); err != nil {
		s.logger.Warn("写入天气缓存失败", zap.Error(err))
	}
	s.logger.Debug("天气已更新", zap.String("summary", w.Description))
	return s.store(w)
}

func (s *weatherService) store(w model.Weather) model.Weather {
	s.mu.Lock()
	s.current = &w
	s.mu.Unlock()
	return w
}

func (s *weatherService) timeout() time.Duration {
	if s.cfg.Timeout <= 0 {
		return 10 * time.Second
	}
	return s.cfg.Timeout
}

func (s *weatherService) fetch(ctx context.Context) (model.Weather, error) {
	if s.cfg.APIKey != "" {
		return s.fetchOpenWeather(ctx)
	}
	return s.fetchWttr(ctx)
}

// ── wttr.in ──

type wttrValue struct {
	Value string `json:"value"`
}

type wttrResponse struct {
	CurrentCondition []struct {
		TempC         string      `json:"temp_C"`
		FeelsLikeC    string      `json:"FeelsLikeC"`
		Humidity      string      `json:"humidity"`
		WeatherCode   string      `json:"weatherCode"`
		WindspeedKmph string      `json:"windspeedKmph"`
		Pressure      string      `json:"pressure"`
		Visibility    string      `json:"visibility"`
		WeatherDesc   []wttrValue `json:"weatherDesc"`
		LangZh        []wttrValue `json:"lang_zh"`
	} `json:"current_condition"`
}

func (s *weatherService) fetchWttr(ctx context.Context) (model.Weather, error) {
	u := strings.TrimRight(s.cfg.WttrURL, "/") + "/" + url.PathEscape(s.cfg.Location) + "?format=j1&lang=zh"

	var resp wttrResponse
	if err := s.getJSON(ctx, u, &resp); err != nil {
		return model.Weather{}, err
	}
	if len(resp.CurrentCondition) == 0 {
		return model.Weather{}, errors.New("wttr.in 返回数据缺少 current_condition")
	}
	cur := resp.CurrentCondition[0]

	w := model.Weather{
		Temp:       atoiPtr(cur.TempC),
		FeelsLike:  atoiPtr(cur.FeelsLikeC),
		Humidity:   atoiPtr(cur.Humidity),
		Pressure:   atoiPtr(cur.Pressure),
		Visibility: atoiPtr(cur.Visibility),
		Icon:       wttrIcon(cur.WeatherCode),
	}
	switch {
	case len(cur.LangZh) > 0 && cur.LangZh[0].Value != "":
		w.Description = strings.TrimSpace(cur.LangZh[0].Value)
	case len(cur.WeatherDesc) > 0:
		w.Description = strings.TrimSpace(cur.WeatherDesc[0].Value)
	}
	if kmph, err := strconv.ParseFloat(cur.WindspeedKmph, 64); err == nil {
		ms := math.Round(kmph/3.6*10) / 10
		w.WindSpeed = &ms
	}
	return w, nil
}

// wttrIcons wttr.in 天气代码到 OpenWeatherMap 图标的映射
var wttrIcons = func() map[string]string {
	m := make(map[string]string)
	groups := map[string][]string{
		"01d": {"113"},
		"02d": {"116"},
		"03d": {"119"},
		"04d": {"122"},
		"50d": {"143", "248", "260"},
		"09d": {"176", "263", "266", "293", "296", "299", "353"},
		"10d": {"302", "305", "308", "356", "359"},
		"11d": {"200", "386", "389", "392"},
		"13d": {"281", "284", "311", "314", "317", "320", "323", "326", "329", "332",
			"335", "338", "350", "362", "365", "368", "371", "374", "377", "395"},
	}
	for icon, codes := range groups {
		for _, code := range codes {
			m[code] = icon
		}
	}
	return m
}()

func wttrIcon(code string) string {
	if icon, ok := wttrIcons[strings.TrimSpace(code)]; ok {
		return icon
	}
	return "01d"
}

// ── OpenWeatherMap ──

type owmResponse struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Visibility *int `json:"visibility"`
}

func (s *weatherService) fetchOpenWeather(ctx context.Context) (model.Weather, error) {
	q := url.Values{}
	q.Set("q", s.cfg.Location)
	q.Set("appid", s.cfg.APIKey)
	q.Set("units", "metric")
	q.Set("lang", "zh_cn")

	var resp owmResponse
	if err := s.getJSON(ctx, s.cfg.OWMURL+"?"+q.Encode(), &resp); err != nil {
		return model.Weather{}, err
	}

	temp := int(math.Round(resp.Main.Temp))
	feels := int(math.Round(resp.Main.FeelsLike))
	humidity := resp.Main.Humidity
	pressure := resp.Main.Pressure
	wind := resp.Wind.Speed

	w := model.Weather{
		Temp:      &temp,
		FeelsLike: &feels,
		Humidity:  &humidity,
		Pressure:  &pressure,
		WindSpeed: &wind,
		Icon:      "01d",
	}
	if len(resp.Weather) > 0 {
		w.Description = resp.Weather[0].Description
		if resp.Weather[0].Icon != "" {
			w.Icon = resp.Weather[0].Icon
		}
	}
	if resp.Visibility != nil {
		km := *resp.Visibility / 1000
		w.Visibility = &km
	}
	return w, nil
}

// getJSON GET 请求并解码 JSON 响应
func (s *weatherService) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "scs-timetable/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("请求天气接口失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("天气接口返回 HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("解析天气数据失败: %w", err)
	}
	return nil
}

func atoiPtr(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}
