package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads the YAML config at path. Any key can be overridden by a
// TRAPLINE_* environment variable, e.g. TRAPLINE_ORACLE_API_KEY, so secrets
// stay out of the file.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TRAPLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	applyDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.StringToTimeDurationHookFunc()
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.listen_addr", ":8080")
	v.SetDefault("app.profile_seed", "configs/profiles.yaml")
	v.SetDefault("broker.rest_base_url", "https://fapi.binance.com")
	v.SetDefault("broker.http_timeout", 10*time.Second)
	v.SetDefault("broker.min_stop_distance_pct", 0.001)
	v.SetDefault("oracle.timeout", 90*time.Second)
	v.SetDefault("oracle.max_retries", 2)
	v.SetDefault("oracle.charts", false)
	v.SetDefault("store.database_path", "data/trapline.db")
	v.SetDefault("store.oracle_log_path", "data/oracle_log.db")
	v.SetDefault("engine.cycle_interval", 15*time.Second)
	v.SetDefault("engine.market_interval", 30*time.Second)
	v.SetDefault("engine.tick_interval", 500*time.Millisecond)
}

func validate(cfg *Config) error {
	if cfg.Oracle.BaseURL == "" {
		return fmt.Errorf("oracle.base_url is required")
	}
	if cfg.Oracle.Model == "" {
		return fmt.Errorf("oracle.model is required")
	}
	if cfg.Engine.CycleInterval <= 0 {
		return fmt.Errorf("engine.cycle_interval must be positive, got %s", cfg.Engine.CycleInterval)
	}
	if cfg.Engine.TickInterval <= 0 {
		return fmt.Errorf("engine.tick_interval must be positive, got %s", cfg.Engine.TickInterval)
	}
	return nil
}
