package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	ierr "github.com/tirelane/tirelane/internal/errors"
	"github.com/tirelane/tirelane/internal/types"
)

// Configuration is the full application configuration, loaded once at
// process start and passed explicitly to every component.
type Configuration struct {
	Server   ServerConfig   `mapstructure:"server"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Billing  BillingConfig  `mapstructure:"billing"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type BillingConfig struct {
	// Currency is the charge currency; KRW has no minor units so catalog
	// amounts are whole won.
	Currency string `mapstructure:"currency"`
	// CronHour/CronMinute fix the daily pass wall-clock time in Timezone.
	CronHour   int    `mapstructure:"cron_hour"`
	CronMinute int    `mapstructure:"cron_minute"`
	Timezone   string `mapstructure:"timezone"`
	// WorkerPoolSize bounds concurrent billing attempts in one pass.
	WorkerPoolSize int `mapstructure:"worker_pool_size"`
}

type GatewayConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	SecretKey string        `mapstructure:"secret_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// NewConfig loads configuration from config files and environment variables.
// A local .env is loaded first when present so container and laptop setups
// behave the same.
func NewConfig() (*Configuration, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("TIRELANE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, ierr.WithError(err).
				WithHint("Failed to read configuration file").
				Mark(ierr.ErrValidation)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to unmarshal configuration").
			Mark(ierr.ErrValidation)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "tirelane")
	v.SetDefault("postgres.dbname", "tirelane")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("billing.currency", "KRW")
	v.SetDefault("billing.cron_hour", 4)
	v.SetDefault("billing.cron_minute", 0)
	v.SetDefault("billing.timezone", "Asia/Seoul")
	v.SetDefault("billing.worker_pool_size", 8)
	v.SetDefault("gateway.base_url", "https://api.tosspayments.com")
	v.SetDefault("gateway.timeout", 30*time.Second)
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.sample_rate", 1.0)
	v.SetDefault("logging.level", "info")
}

// Validate checks the fields that would otherwise fail at first use.
func (c *Configuration) Validate() error {
	if err := types.ValidateTimezone(c.Billing.Timezone); err != nil {
		return ierr.WithError(err).
			WithHintf("Invalid billing timezone: %s", c.Billing.Timezone).
			Mark(ierr.ErrValidation)
	}
	if c.Billing.CronHour < 0 || c.Billing.CronHour > 23 {
		return ierr.NewErrorf("invalid billing cron hour: %d", c.Billing.CronHour).
			Mark(ierr.ErrValidation)
	}
	if c.Billing.CronMinute < 0 || c.Billing.CronMinute > 59 {
		return ierr.NewErrorf("invalid billing cron minute: %d", c.Billing.CronMinute).
			Mark(ierr.ErrValidation)
	}
	if c.Billing.WorkerPoolSize <= 0 {
		return ierr.NewError("billing worker pool size must be positive").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// BillingLocation returns the time zone the daily pass runs in. Validate
// guarantees the name parses.
func (c *Configuration) BillingLocation() *time.Location {
	loc, err := time.LoadLocation(types.ResolveTimezone(c.Billing.Timezone))
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetDefaultConfig returns a configuration suitable for tests and scripts.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Server: ServerConfig{Address: ":8080"},
		Postgres: PostgresConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "tirelane",
			DBName:  "tirelane",
			SSLMode: "disable",
		},
		Billing: BillingConfig{
			Currency:       "KRW",
			CronHour:       4,
			CronMinute:     0,
			Timezone:       "Asia/Seoul",
			WorkerPoolSize: 4,
		},
		Gateway: GatewayConfig{
			BaseURL: "https://api.tosspayments.com",
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
