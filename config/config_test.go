package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}
	if cfg.Server.Port != 18080 {
		t.Errorf("server.port 期望 18080, 实际 %d", cfg.Server.Port)
	}
	if cfg.Storage.Driver != StorageFile {
		t.Errorf("storage.driver 期望 file, 实际 %s", cfg.Storage.Driver)
	}
	if cfg.Reminder.Minutes != 5 || !cfg.Reminder.EnableExtraTime {
		t.Errorf("reminder 默认值错误: %+v", cfg.Reminder)
	}
	if cfg.Weather.Timeout != 10*time.Second {
		t.Errorf("weather.timeout 期望 10s, 实际 %v", cfg.Weather.Timeout)
	}
	if cfg.Weather.CacheTTL != 30*time.Minute {
		t.Errorf("weather.cache_ttl 期望 30m, 实际 %v", cfg.Weather.CacheTTL)
	}
	if len(cfg.Distance.Classrooms) != 5 {
		t.Errorf("默认教室距离表期望 5 项, 实际 %d", len(cfg.Distance.Classrooms))
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 19090
reminder:
  minutes: 10
notification:
  sound_type: gentle
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SCS_WEATHER_LOCATION", "上海")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if cfg.Server.Port != 19090 {
		t.Errorf("server.port 期望 19090, 实际 %d", cfg.Server.Port)
	}
	if cfg.Reminder.Minutes != 10 {
		t.Errorf("reminder.minutes 期望 10, 实际 %d", cfg.Reminder.Minutes)
	}
	if cfg.Notification.SoundType != SoundGentle {
		t.Errorf("notification.sound_type 期望 gentle, 实际 %s", cfg.Notification.SoundType)
	}
	if cfg.Weather.Location != "上海" {
		t.Errorf("环境变量应覆盖 weather.location, 实际 %s", cfg.Weather.Location)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:       ServerConfig{Port: 18080},
			Storage:      StorageConfig{Driver: StorageFile, FilePath: "data.json"},
			Reminder:     ReminderConfig{Minutes: 5, Timezone: "Asia/Shanghai"},
			Notification: NotificationConfig{SoundType: SoundDefault},
			Weather:      WeatherConfig{Timeout: time.Second},
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("合法配置不应报错: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"端口越界", func(c *Config) { c.Server.Port = 70000 }},
		{"未知存储驱动", func(c *Config) { c.Storage.Driver = "mysql" }},
		{"文件路径为空", func(c *Config) { c.Storage.FilePath = "" }},
		{"提醒分钟为负", func(c *Config) { c.Reminder.Minutes = -1 }},
		{"时区无效", func(c *Config) { c.Reminder.Timezone = "Mars/Olympus" }},
		{"音效类型无效", func(c *Config) { c.Notification.SoundType = "loud" }},
		{"自定义音效缺文件", func(c *Config) {
			c.Notification.SoundType = SoundCustom
			c.Notification.CustomSoundFile = ""
		}},
		{"学期起始日期格式错误", func(c *Config) { c.Semester.StartDate = "2024/09/01" }},
		{"天气超时为 0", func(c *Config) { c.Weather.Timeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Errorf("%s: 期望校验失败", tt.name)
			}
		})
	}
}
