package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Database   DatabaseConfig   `mapstructure:"database"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Tasks      TasksConfig      `mapstructure:"tasks"`
	Calendar   CalendarConfig   `mapstructure:"calendar"`
	Founder    FounderConfig    `mapstructure:"founder"`
	Notifier   NotifierConfig   `mapstructure:"notifier"`
	Workers    WorkersConfig    `mapstructure:"workers"`
}

// ---- Leaf structs ----

type AppConfig struct {
	Name     string `mapstructure:"name"`
	DemoMode bool   `mapstructure:"demo_mode"`
	DemoKey  string `mapstructure:"demo_key"`
	LogLevel string `mapstructure:"log_level"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres|mysql|sqlite
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type ClickHouseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers        []string     `mapstructure:"brokers"`
	GroupID        string       `mapstructure:"group_id"`
	MinBytes       int          `mapstructure:"min_bytes"`
	MaxBytes       int          `mapstructure:"max_bytes"`
	CommitInterval int          `mapstructure:"commit_interval_ms"`
	Topics         TopicsConfig `mapstructure:"topics"`
}

type TopicsConfig struct {
	Tasks   string `mapstructure:"tasks"`
	Signals string `mapstructure:"signals"`
	Founder string `mapstructure:"founder"`
}

type RateLimitConfig struct {
	RPS   int `mapstructure:"rps"`
	Burst int `mapstructure:"burst"`
}

type TasksConfig struct {
	MaxSnoozeDays int `mapstructure:"max_snooze_days"`
}

type CalendarConfig struct {
	WorkStartHour      int    `mapstructure:"work_start_hour"`
	WorkEndHour        int    `mapstructure:"work_end_hour"`
	WorkingDays        []int  `mapstructure:"working_days"` // time.Weekday values
	GranularityMinutes int    `mapstructure:"granularity_minutes"`
	BufferMinutes      int    `mapstructure:"buffer_minutes"`
	HorizonDays        int    `mapstructure:"horizon_days"`
	Timezone           string `mapstructure:"timezone"`
}

type FounderConfig struct {
	DefaultLayer string `mapstructure:"default_layer"`
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold" yaml:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"    yaml:"open_for_ms"`
}

type NotifierConfig struct {
	MaxAttempts int              `mapstructure:"max_attempts"`
	Providers   []ProviderConfig `mapstructure:"providers"`
}

type ProviderConfig struct {
	Name      string        `mapstructure:"name"`
	Enabled   bool          `mapstructure:"enabled"`
	URL       string        `mapstructure:"url"`
	TimeoutMs int           `mapstructure:"timeout_ms"`
	Breaker   BreakerConfig `mapstructure:"breaker"`
}

type WorkersConfig struct {
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	RelayBatchSize  int           `mapstructure:"relay_batch_size"`
	RelayInterval   time.Duration `mapstructure:"relay_interval"`
	ScorerWorkers   int           `mapstructure:"scorer_workers"`
	RescoreLookback time.Duration `mapstructure:"rescore_lookback"`
}

// Location resolves the calendar timezone, falling back to UTC.
func (c CalendarConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate rejects configurations the services cannot run with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Tasks.MaxSnoozeDays <= 0 {
		return errors.New("tasks.max_snooze_days must be positive")
	}
	if c.Calendar.WorkStartHour < 0 || c.Calendar.WorkEndHour > 24 || c.Calendar.WorkStartHour >= c.Calendar.WorkEndHour {
		return fmt.Errorf("invalid work hours %d-%d", c.Calendar.WorkStartHour, c.Calendar.WorkEndHour)
	}
	return nil
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (RENUBU_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (RENUBU_*)
	v.SetEnvPrefix("RENUBU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.App.DemoMode {
		cfg.Database.Driver = "sqlite"
		if cfg.Database.DSN == "" || !strings.HasSuffix(cfg.Database.DSN, ".db") {
			cfg.Database.DSN = "renubu-demo.db"
		}
		cfg.ClickHouse.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv exports the keys of a .env file into the process environment.
// Variables that are already set win over the file.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return fmt.Errorf("export %s: %w", name, err)
		}
	}
	return nil
}
