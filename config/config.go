package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, eg PERIOREC_LOG_LEVEL.
const EnvPrefix = "periorec"

// The structs carry no envconfig name tags: envconfig treats a name tag
// as an alternate key it will also read unprefixed, which would let bare
// variables like PATH or CONSOLE override the config. The prefixed names
// (PERIOREC_RECORDS_PATH, ...) all derive from the field names.

type RecordsConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// File receives the log stream when set; stderr otherwise.
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

type StatsConfig struct {
	CacheTTL     time.Duration `mapstructure:"cache_ttl" split_words:"true"`
	CacheCleanup time.Duration `mapstructure:"cache_cleanup" split_words:"true"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

type Config struct {
	Records RecordsConfig `mapstructure:"records"`
	Log     LogConfig     `mapstructure:"log"`
	Stats   StatsConfig   `mapstructure:"stats"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoadConfig reads periorec.yaml from the working directory or
// ~/.config/periorec, falls back to defaults when no file exists, then
// applies PERIOREC_* environment overrides on top.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("periorec")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/periorec")

	v.SetDefault("records.path", "records.yaml")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.console", true)
	v.SetDefault("stats.cache_ttl", 5*time.Minute)
	v.SetDefault("stats.cache_cleanup", 10*time.Minute)
	v.SetDefault("metrics.namespace", "periorec")

	if err := v.ReadInConfig(); err != nil {
		// a fresh install has no config file
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return &config, nil
}
