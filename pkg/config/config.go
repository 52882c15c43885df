package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

type (
	Config struct {
		HTTP
		Database
		OverdueScan
		Security
	}

	HTTP struct {
		Host            string
		Port            int
		GinMode         string
		ShutdownTimeout time.Duration
	}
	Database struct {
		Driver     string
		Host       string
		Port       int
		User       string
		Password   string
		Name       string
		Path       string // sqlite only
		MaxRetries int
		RetryDelay time.Duration
		LogLevel   string // silent, error, warn, info
		Seed       bool
	}
	OverdueScan struct {
		Enabled     bool
		Schedule    string // cron format: "0 * * * *" = hourly
		MaxFailures int
		Cooldown    time.Duration
	}
	Security struct {
		BcryptCost int
	}
)

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := NewConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("gin_mode", "release")
	v.SetDefault("shutdown_timeout", "5s")

	v.SetDefault("db_driver", DriverPostgres)
	v.SetDefault("db_host", "postgres")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_user", "program")
	v.SetDefault("db_password", "test")
	v.SetDefault("db_name", "library")
	v.SetDefault("db_path", "./library.db")
	v.SetDefault("db_max_retries", 10)
	v.SetDefault("db_retry_delay", "5s")
	v.SetDefault("db_log_level", "warn")
	v.SetDefault("db_seed", false)

	v.SetDefault("overdue_scan_enabled", true)
	v.SetDefault("overdue_scan_schedule", "0 * * * *") // hourly at :00
	v.SetDefault("overdue_scan_max_failures", 3)
	v.SetDefault("overdue_scan_cooldown", "10m")

	v.SetDefault("bcrypt_cost", 12)

	return &Config{
		HTTP: HTTP{
			Host:            v.GetString("HOST"),
			Port:            v.GetInt("PORT"),
			GinMode:         v.GetString("GIN_MODE"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Database: Database{
			Driver:     v.GetString("DB_DRIVER"),
			Host:       v.GetString("DB_HOST"),
			Port:       v.GetInt("DB_PORT"),
			User:       v.GetString("DB_USER"),
			Password:   v.GetString("DB_PASSWORD"),
			Name:       v.GetString("DB_NAME"),
			Path:       v.GetString("DB_PATH"),
			MaxRetries: v.GetInt("DB_MAX_RETRIES"),
			RetryDelay: v.GetDuration("DB_RETRY_DELAY"),
			LogLevel:   v.GetString("DB_LOG_LEVEL"),
			Seed:       v.GetBool("DB_SEED"),
		},
		OverdueScan: OverdueScan{
			Enabled:     v.GetBool("OVERDUE_SCAN_ENABLED"),
			Schedule:    v.GetString("OVERDUE_SCAN_SCHEDULE"),
			MaxFailures: v.GetInt("OVERDUE_SCAN_MAX_FAILURES"),
			Cooldown:    v.GetDuration("OVERDUE_SCAN_COOLDOWN"),
		},
		Security: Security{
			BcryptCost: v.GetInt("BCRYPT_COST"),
		},
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want postgres, mysql or sqlite)", c.Database.Driver)
	}
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.HTTP.Port)
	}
	if c.Database.MaxRetries < 1 {
		return fmt.Errorf("DB_MAX_RETRIES must be at least 1, got %d", c.Database.MaxRetries)
	}
	if c.OverdueScan.Enabled {
		if err := ValidateCronSchedule(c.OverdueScan.Schedule); err != nil {
			return fmt.Errorf("invalid OVERDUE_SCAN_SCHEDULE %q: %w", c.OverdueScan.Schedule, err)
		}
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (h HTTP) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// ValidateCronSchedule checks a standard five-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := cron.ParseStandard(schedule)
	return err
}
