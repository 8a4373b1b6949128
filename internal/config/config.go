package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is shared by the HTTP server and the CLI
type Config struct {
	DatabaseURL        string        `mapstructure:"database_url"`
	Port               string        `mapstructure:"port"`
	Env                string        `mapstructure:"go_env"`
	LogLevel           string        `mapstructure:"log_level"`
	KafkaBrokers       string        `mapstructure:"kafka_brokers"`
	KafkaForecastTopic string        `mapstructure:"kafka_forecast_topic"`
	MinHistoryPoints   int           `mapstructure:"forecast_min_history_points"`
	DefaultWindow      int           `mapstructure:"forecast_default_window"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
}

var defaults = map[string]any{
	"database_url":                "",
	"port":                        "8080",
	"go_env":                      "development",
	"log_level":                   "info",
	"kafka_brokers":               "",
	"kafka_forecast_topic":        "forecasts.generated",
	"forecast_min_history_points": 5,
	"forecast_default_window":     7,
	"request_timeout":             "10s",
	"shutdown_timeout":            "5s",
}

// Load reads .env (if present), the optional config file and the environment.
// Environment variables use the upper-cased key, e.g. DATABASE_URL.
func Load(cfgFile string) (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: error reading config file: %w", err)
		}
	}

	var cfg Config
	decoderConfigOption := viper.DecoderConfigOption(func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			dc.DecodeHook,
			mapstructure.StringToTimeDurationHookFunc(),
		)
	})
	if err := v.Unmarshal(&cfg, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("config: unable to decode into struct, %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MinHistoryPoints < 1 {
		return errors.New("config: forecast_min_history_points must be at least 1")
	}
	if c.DefaultWindow < 1 {
		return errors.New("config: forecast_default_window must be at least 1")
	}
	return nil
}
