package config

import "time"

// Config is the process-wide configuration, merged from the YAML file and
// TRAPLINE_* environment variables.
type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Broker BrokerConfig `mapstructure:"broker"`
	Oracle OracleConfig `mapstructure:"oracle"`
	Store  StoreConfig  `mapstructure:"store"`
	Relay  RelayConfig  `mapstructure:"relay"`
	Engine EngineConfig `mapstructure:"engine"`
}

type AppConfig struct {
	LogLevel    string `mapstructure:"log_level"`
	LogFile     string `mapstructure:"log_file"`
	ListenAddr  string `mapstructure:"listen_addr"`
	ProfileSeed string `mapstructure:"profile_seed"`
}

type BrokerConfig struct {
	APIKey             string        `mapstructure:"api_key"`
	SecretKey          string        `mapstructure:"secret_key"`
	RESTBaseURL        string        `mapstructure:"rest_base_url"`
	HTTPTimeout        time.Duration `mapstructure:"http_timeout"`
	MinStopDistancePct float64       `mapstructure:"min_stop_distance_pct"`
}

type OracleConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	Charts      bool          `mapstructure:"charts"`
	PayloadDump string        `mapstructure:"payload_dump"`
}

type StoreConfig struct {
	DatabasePath  string `mapstructure:"database_path"`
	OracleLogPath string `mapstructure:"oracle_log_path"`
}

type RelayConfig struct {
	DefaultFocus string `mapstructure:"default_focus"`
}

type EngineConfig struct {
	CycleInterval  time.Duration `mapstructure:"cycle_interval"`
	MarketInterval time.Duration `mapstructure:"market_interval"`
	TickInterval   time.Duration `mapstructure:"tick_interval"`
}
