package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type RealtimeConfig struct {
	PingPeriodSeconds int   `mapstructure:"ping_period_seconds"`
	WriteWaitSeconds  int   `mapstructure:"write_wait_seconds"`
	ReadLimitBytes    int64 `mapstructure:"read_limit_bytes"`
	SendBuffer        int   `mapstructure:"send_buffer"`
	TypingTTLSeconds  int   `mapstructure:"typing_ttl_seconds"`
}

type QueueConfig struct {
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

type PaginationConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

type Config struct {
	Env        string           `mapstructure:"env"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Realtime   RealtimeConfig   `mapstructure:"realtime"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Pagination PaginationConfig `mapstructure:"pagination"`

	// derived durations
	PingPeriod time.Duration
	WriteWait  time.Duration
	TypingTTL  time.Duration
}

// Load reads configuration from an optional file plus environment variables.
// Env keys use underscores for nesting, e.g. DATABASE_URL, AUTH_JWT_SECRET,
// REALTIME_PING_PERIOD_SECONDS.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", "production")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("realtime.ping_period_seconds", 30)
	v.SetDefault("realtime.write_wait_seconds", 10)
	v.SetDefault("realtime.read_limit_bytes", 1<<20)
	v.SetDefault("realtime.send_buffer", 128)
	v.SetDefault("realtime.typing_ttl_seconds", 10)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("pagination.default_limit", 50)
	v.SetDefault("pagination.max_limit", 100)

	// viper does not apply AutomaticEnv to nested keys unless they are bound
	for _, key := range []string{"database.url", "redis.url", "auth.jwt_secret"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}

	if c.Database.URL == "" {
		return nil, errors.New("config: database url is required (DATABASE_URL)")
	}
	if c.Auth.JWTSecret == "" {
		return nil, errors.New("config: jwt secret is required (AUTH_JWT_SECRET)")
	}
	if len(c.Queue.Queues) == 0 {
		c.Queue.Queues = map[string]int{"default": 1, "chat": 1}
	}

	c.PingPeriod = time.Duration(c.Realtime.PingPeriodSeconds) * time.Second
	c.WriteWait = time.Duration(c.Realtime.WriteWaitSeconds) * time.Second
	c.TypingTTL = time.Duration(c.Realtime.TypingTTLSeconds) * time.Second
	return &c, nil
}
