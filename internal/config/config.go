// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	DB       DBConfig       `mapstructure:"db"`
	Proxy    ProxyConfig    `mapstructure:"proxy"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// ProxyConfig configures the rotating forward proxy. BaseURL is optional;
// when empty the crawler fetches direct.
type ProxyConfig struct {
	BaseURL string `mapstructure:"base_url"`
	PortMin int    `mapstructure:"port_min"`
	PortMax int    `mapstructure:"port_max"`
}

// HTTPConfig configures outbound HTTP behavior.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// CrawlConfig governs batch pacing.
type CrawlConfig struct {
	DelayMinMs    int `mapstructure:"delay_min_ms"`
	DelayMaxMs    int `mapstructure:"delay_max_ms"`
	ProgressEvery int `mapstructure:"progress_every"`
}

// ScheduleConfig sets the daily batch trigger time.
type ScheduleConfig struct {
	Hour     int    `mapstructure:"hour"`
	Minute   int    `mapstructure:"minute"`
	Timezone string `mapstructure:"timezone"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PLACERANK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("proxy.port_min", 10001)
	v.SetDefault("proxy.port_max", 10100)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("crawl.delay_min_ms", 2000)
	v.SetDefault("crawl.delay_max_ms", 4000)
	v.SetDefault("crawl.progress_every", 10)
	v.SetDefault("schedule.hour", 14)
	v.SetDefault("schedule.minute", 0)
	v.SetDefault("schedule.timezone", "Asia/Seoul")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Crawl.DelayMinMs <= 0 || c.Crawl.DelayMaxMs < c.Crawl.DelayMinMs {
		return fmt.Errorf("crawl delay bounds must satisfy 0 < delay_min_ms <= delay_max_ms")
	}
	if c.Proxy.PortMin <= 0 || c.Proxy.PortMax < c.Proxy.PortMin {
		return fmt.Errorf("proxy port range must satisfy 0 < port_min <= port_max")
	}
	if c.Schedule.Hour < 0 || c.Schedule.Hour > 23 {
		return fmt.Errorf("schedule.hour must be in [0, 23]")
	}
	if c.Schedule.Minute < 0 || c.Schedule.Minute > 59 {
		return fmt.Errorf("schedule.minute must be in [0, 59]")
	}
	return nil
}

// FetchTimeout returns the per-request timeout as a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// DelayMin returns the lower inter-item delay bound.
func (c Config) DelayMin() time.Duration {
	return time.Duration(c.Crawl.DelayMinMs) * time.Millisecond
}

// DelayMax returns the upper inter-item delay bound.
func (c Config) DelayMax() time.Duration {
	return time.Duration(c.Crawl.DelayMaxMs) * time.Millisecond
}
