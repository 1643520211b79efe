package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Database     DatabaseConfig     `mapstructure:"db"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Log          LogConfig          `mapstructure:"log"`
	Semester     SemesterConfig     `mapstructure:"semester"`
	Reminder     ReminderConfig     `mapstructure:"reminder"`
	Notification NotificationConfig `mapstructure:"notification"`
	Weather      WeatherConfig      `mapstructure:"weather"`
	Distance     DistanceConfig     `mapstructure:"distance"`
}

// ServerConfig 本地 HTTP 服务配置（供桌面悬浮窗 UI 调用）
type ServerConfig struct {
	Host         string     `mapstructure:"host"`
	Port         int        `mapstructure:"port"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	CORS         CORSConfig `mapstructure:"cors"`
}

// Addr 监听地址
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// StorageConfig 课表快照存储配置
type StorageConfig struct {
	Driver   string `mapstructure:"driver"`    // file | sqlite | postgres
	FilePath string `mapstructure:"file_path"` // driver=file 时的 JSON 文件路径
}

// 存储驱动
const (
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// DatabaseConfig 数据库配置（sqlite / postgres）
type DatabaseConfig struct {
	Path            string `mapstructure:"path"` // sqlite 文件路径
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 分钟
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置，目前仅用于天气快照缓存
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SemesterConfig 学期配置
type SemesterConfig struct {
	// StartDate 学期第一周第一天（YYYY-MM-DD），仅在课表数据中尚未设置时作为初始值
	StartDate  string `mapstructure:"start_date"`
	TotalWeeks int    `mapstructure:"total_weeks"`
}

// ReminderConfig 课程提醒配置
type ReminderConfig struct {
	Minutes         int    `mapstructure:"minutes"`           // 提前提醒分钟数
	EnableExtraTime bool   `mapstructure:"enable_extra_time"` // 教室较远时增加提前量
	TickCron        string `mapstructure:"tick_cron"`
	Timezone        string `mapstructure:"timezone"`
}

// Location 解析提醒使用的时区
func (c *ReminderConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// NotificationConfig 通知音效配置
type NotificationConfig struct {
	SoundType       string `mapstructure:"sound_type"` // default | gentle | urgent | custom
	CustomSoundFile string `mapstructure:"custom_sound_file"`
	SoundsDir       string `mapstructure:"sounds_dir"`
	RecentSize      int    `mapstructure:"recent_size"` // 最近提醒保留条数
}

// 提醒音效类型
const (
	SoundDefault = "default"
	SoundGentle  = "gentle"
	SoundUrgent  = "urgent"
	SoundCustom  = "custom"
)

// WeatherConfig 天气配置
type WeatherConfig struct {
	APIKey      string        `mapstructure:"api_key"` // 为空时使用 wttr.in
	Location    string        `mapstructure:"location"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RefreshCron string        `mapstructure:"refresh_cron"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	WttrURL     string        `mapstructure:"wttr_url"`
	OWMURL      string        `mapstructure:"owm_url"`
}

// DistanceConfig 教室距离表（米）
type DistanceConfig struct {
	Classrooms map[string]int `mapstructure:"classrooms"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 18080)
	v.SetDefault("server.max_body_bytes", 5<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("storage.driver", StorageFile)
	v.SetDefault("storage.file_path", "config/course_data.json")

	v.SetDefault("db.path", "config/scs.db")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "scs")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Shanghai")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", 60)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("semester.start_date", "")
	v.SetDefault("semester.total_weeks", 20)

	v.SetDefault("reminder.minutes", 5)
	v.SetDefault("reminder.enable_extra_time", true)
	v.SetDefault("reminder.tick_cron", "* * * * *")
	v.SetDefault("reminder.timezone", "Asia/Shanghai")

	v.SetDefault("notification.sound_type", SoundDefault)
	v.SetDefault("notification.custom_sound_file", "sounds/default_notification.wav")
	v.SetDefault("notification.sounds_dir", "sounds")
	v.SetDefault("notification.recent_size", 50)

	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.location", "北京")
	v.SetDefault("weather.timeout", "10s")
	v.SetDefault("weather.refresh_cron", "*/30 * * * *")
	v.SetDefault("weather.cache_ttl", "30m")
	v.SetDefault("weather.wttr_url", "https://wttr.in")
	v.SetDefault("weather.owm_url", "http://api.openweathermap.org/data/2.5/weather")

	v.SetDefault("distance.classrooms", map[string]int{
		"实验楼203":  800,
		"教学楼A101": 200,
		"教学楼B201": 300,
		"图书馆301":  600,
		"体育馆":     1000,
	})

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("SCS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	switch c.Storage.Driver {
	case StorageFile:
		if c.Storage.FilePath == "" {
			return fmt.Errorf("配置校验失败: storage.file_path 不能为空")
		}
	case StorageSQLite, StoragePostgres:
	default:
		return fmt.Errorf("配置校验失败: storage.driver 仅支持 file/sqlite/postgres，当前为 %q", c.Storage.Driver)
	}
	if c.Reminder.Minutes < 0 {
		return fmt.Errorf("配置校验失败: reminder.minutes 不能为负数")
	}
	if _, err := c.Reminder.Location(); err != nil {
		return fmt.Errorf("配置校验失败: reminder.timezone 无效: %w", err)
	}
	switch c.Notification.SoundType {
	case SoundDefault, SoundGentle, SoundUrgent:
	case SoundCustom:
		if c.Notification.CustomSoundFile == "" {
			return fmt.Errorf("配置校验失败: notification.sound_type=custom 时 custom_sound_file 不能为空")
		}
	default:
		return fmt.Errorf("配置校验失败: notification.sound_type 无效: %q", c.Notification.SoundType)
	}
	if c.Semester.StartDate != "" {
		if _, err := time.Parse("2006-01-02", c.Semester.StartDate); err != nil {
			return fmt.Errorf("配置校验失败: semester.start_date 格式应为 YYYY-MM-DD")
		}
	}
	if c.Weather.Timeout <= 0 {
		return fmt.Errorf("配置校验失败: weather.timeout 必须大于 0")
	}
	return nil
}
