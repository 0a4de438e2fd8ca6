package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Stats     StatsConfig     `mapstructure:"stats"`
	Notifier  NotifierConfig  `mapstructure:"notifier"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	// Driver selects the storage backend: "postgres" or "memory".
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type SchedulerConfig struct {
	// ScanInterval is the due-scan cadence that recovers missed wake-ups.
	ScanInterval time.Duration `mapstructure:"scan_interval"`
	// DefaultInterval backs unknown schedule specs and custom expressions
	// when no expression evaluator is available.
	DefaultInterval   time.Duration `mapstructure:"default_interval"`
	MarketCloseHour   int           `mapstructure:"market_close_hour"`
	MarketCloseMinute int           `mapstructure:"market_close_minute"`
}

type StatsConfig struct {
	// AccuracyTolerance is the max delay between a scheduled alert's
	// computed trigger time and its actual creation for the firing to
	// count as accurate.
	AccuracyTolerance time.Duration `mapstructure:"accuracy_tolerance"`
	TrailingWindow    time.Duration `mapstructure:"trailing_window"`
}

type NotifierConfig struct {
	// Kind selects the delivery channel: "log" or "webhook".
	Kind       string        `mapstructure:"kind"`
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.driver", "memory")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("scheduler.scan_interval", "1m")
	v.SetDefault("scheduler.default_interval", "24h")
	v.SetDefault("scheduler.market_close_hour", 16)
	v.SetDefault("scheduler.market_close_minute", 0)
	v.SetDefault("stats.accuracy_tolerance", "2m")
	v.SetDefault("stats.trailing_window", "24h")
	v.SetDefault("notifier.kind", "log")
	v.SetDefault("notifier.timeout", "5s")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
