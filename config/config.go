package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Environment overrides are named TRADEPNL_<SECTION>_<FIELD>, e.g.
// TRADEPNL_DATABASE_DRIVER or TRADEPNL_UPLOADS_RETENTION.
const envPrefix = "TRADEPNL"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Database DatabaseConfig `yaml:"database" envconfig:"DATABASE"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Analysis AnalysisConfig `yaml:"analysis" envconfig:"ANALYSIS"`
	Uploads  UploadsConfig  `yaml:"uploads" envconfig:"UPLOADS"`
}

type ServerConfig struct {
	Port           int   `yaml:"port" split_words:"true"`
	MaxUploadBytes int64 `yaml:"max_upload_bytes" split_words:"true"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver" split_words:"true"`
	Host     string `yaml:"host" split_words:"true"`
	Port     string `yaml:"port" split_words:"true"`
	User     string `yaml:"user" split_words:"true"`
	Password string `yaml:"password" split_words:"true"`
	Name     string `yaml:"name" split_words:"true"`
	SSLMode  string `yaml:"sslmode" split_words:"true"`
	TimeZone string `yaml:"timezone" split_words:"true"`
	// Path is the database file when Driver is sqlite.
	Path string `yaml:"path" split_words:"true"`
}

type LoggingConfig struct {
	Level       string `yaml:"level" split_words:"true"`
	Development bool   `yaml:"development" split_words:"true"`
}

type AnalysisConfig struct {
	FileWorkers int `yaml:"file_workers" split_words:"true"`
}

type UploadsConfig struct {
	Dir string `yaml:"dir" split_words:"true"`
	// Retention is how long uploaded files are kept; 0 keeps them forever.
	Retention     time.Duration `yaml:"retention" split_words:"true"`
	PruneSchedule string        `yaml:"prune_schedule" split_words:"true"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Load reads .env, then the YAML file at path (optional), then environment
// overrides, then fills defaults and validates.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyLegacyEnv(cfg)
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// applyLegacyEnv honors the unprefixed variables earlier deployments used.
func applyLegacyEnv(cfg *Config) {
	legacy := map[string]*string{
		"DB_HOST":     &cfg.Database.Host,
		"DB_PORT":     &cfg.Database.Port,
		"DB_USER":     &cfg.Database.User,
		"DB_PASSWORD": &cfg.Database.Password,
		"DB_NAME":     &cfg.Database.Name,
	}
	for key, dst := range legacy {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	if v := os.Getenv("FILE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.FileWorkers = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 32 << 20
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == "" {
		c.Database.Port = "5432"
	}
	if c.Database.User == "" {
		c.Database.User = "postgres"
	}
	if c.Database.Password == "" {
		c.Database.Password = "password"
	}
	if c.Database.Name == "" {
		c.Database.Name = "tradepnl"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.TimeZone == "" {
		c.Database.TimeZone = "UTC"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/tradepnl.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Analysis.FileWorkers == 0 {
		c.Analysis.FileWorkers = 8
	}
	if c.Uploads.Dir == "" {
		c.Uploads.Dir = "data/uploads"
	}
	if c.Uploads.PruneSchedule == "" {
		c.Uploads.PruneSchedule = "@daily"
	}
}

// Validate checks that all settings are usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes < 0 {
		return fmt.Errorf("server.max_upload_bytes must not be negative")
	}
	if c.Database.Driver != DriverPostgres && c.Database.Driver != DriverSQLite {
		return fmt.Errorf("database.driver must be %s or %s, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}
	if c.Analysis.FileWorkers < 1 {
		return fmt.Errorf("analysis.file_workers must be positive")
	}
	if c.Uploads.Retention < 0 {
		return fmt.Errorf("uploads.retention must not be negative")
	}
	return nil
}

// DSN is the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode, d.TimeZone)
}
