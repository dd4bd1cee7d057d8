package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	Rooms     RoomsConfig     `mapstructure:"rooms"`
	Bus       BusConfig       `mapstructure:"bus"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"ws_rate"`
}

type RoomsConfig struct {
	MaxRooms    int           `mapstructure:"max_rooms"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	InboxSize   int           `mapstructure:"inbox_size"`
}

type BusConfig struct {
	SubscriberBuffer int    `mapstructure:"subscriber_buffer"`
	Policy           string `mapstructure:"policy"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig bounds inbound websocket messages per connection.
type RateLimitConfig struct {
	PerSecond float64 `mapstructure:"per_second"`
	Burst     int     `mapstructure:"burst"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// POKER_ROOMS_MAX_ROOMS overrides rooms.max_rooms
	v.SetEnvPrefix("poker")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 4096)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "")
	v.SetDefault("rooms.max_rooms", 1000)
	v.SetDefault("rooms.idle_timeout", "30m")
	v.SetDefault("rooms.inbox_size", 64)
	v.SetDefault("bus.subscriber_buffer", 16)
	v.SetDefault("bus.policy", "replace")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("ws_rate.per_second", 5.0)
	v.SetDefault("ws_rate.burst", 10)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("config: secret is required")
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Int("max_rooms", cfg.Rooms.MaxRooms).Str("bus_policy", cfg.Bus.Policy).Msg("config ready")
	return &cfg, nil
}
