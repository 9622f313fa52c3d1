package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the service. Tags use mapstructure
// for Viper unmarshalling; every key can be overridden by environment.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`

	// MeetingBaseURL is the public prefix meeting links are minted under; the
	// media transport behind it is not this service's concern.
	MeetingBaseURL string `mapstructure:"MEETING_BASE_URL"`

	// PlatformBaseURL is the internal address of the platform API that
	// answers identity, enrollment and course-catalog questions.
	PlatformBaseURL string `mapstructure:"PLATFORM_BASE_URL"`

	// CacheBackend selects the read-side session snapshot cache: "memory"
	// (default) or "redis".
	CacheBackend    string `mapstructure:"CACHE_BACKEND"`
	CacheTTLSeconds int    `mapstructure:"CACHE_TTL_SECONDS"`
	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	RedisPrefix     string `mapstructure:"REDIS_PREFIX"`
}

// LoadConfig reads configuration from file, environment variables, and
// defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/liveclass/")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/liveclass_dev")
	v.SetDefault("MONGO_DB_NAME", "liveclass_dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("MEETING_BASE_URL", "https://meet.liveclass.dev")
	v.SetDefault("PLATFORM_BASE_URL", "http://localhost:8081")
	v.SetDefault("CACHE_BACKEND", "memory")
	v.SetDefault("CACHE_TTL_SECONDS", 30)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PREFIX", "liveclass")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, we run on defaults and env; any
		// other read error is real.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
