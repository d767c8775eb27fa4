package swatches

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every setting needed to assemble the swatch services.
type Config struct {
	Database DatabaseConfig `json:"database" yaml:"database"`
	Server   ServerConfig   `json:"server" yaml:"server"`
	Batch    BatchConfig    `json:"batch" yaml:"batch"`
	Schedule ScheduleConfig `json:"schedule" yaml:"schedule"`
	Export   ExportConfig   `json:"export" yaml:"export"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host            string        `json:"host" yaml:"host"`
	Port            int           `json:"port" yaml:"port"`
	Database        string        `json:"database" yaml:"database"`
	Username        string        `json:"username" yaml:"username"`
	Password        string        `json:"password" yaml:"password"`
	SSLMode         string        `json:"sslMode" yaml:"sslMode"`
	MaxConnections  int           `json:"maxConnections" yaml:"maxConnections"`
	MaxIdleConns    int           `json:"maxIdleConns" yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" yaml:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `json:"connMaxIdleTime" yaml:"connMaxIdleTime"`
	Timeout         time.Duration `json:"timeout" yaml:"timeout"`
	// UseIAMAuth generates an Aurora DSQL auth token instead of using Password.
	UseIAMAuth bool   `json:"useIAMAuth" yaml:"useIAMAuth"`
	Region     string `json:"region" yaml:"region"`
}

// ServerConfig contains the HTTP adapter settings
type ServerConfig struct {
	Port            string        `json:"port" yaml:"port"`
	APIToken        string        `json:"-" yaml:"apiToken"`
	ReadTimeout     time.Duration `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout    time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout" yaml:"shutdownTimeout"`
	RunWorker       bool          `json:"runWorker" yaml:"runWorker"`
}

// BatchConfig contains regeneration pass settings
type BatchConfig struct {
	// LockStaleAfter is how long a run-lock that is no longer refreshed blocks new passes before it may be taken over.
	LockStaleAfter time.Duration `json:"lockStaleAfter" yaml:"lockStaleAfter"`
	RunningStatus  string        `json:"runningStatus" yaml:"runningStatus"`
	DoneStatus     string        `json:"doneStatus" yaml:"doneStatus"`

	// InterruptedStatus is written when a pass stops before every product was processed.
	InterruptedStatus string `json:"interruptedStatus" yaml:"interruptedStatus"`
}

// ScheduleConfig contains work queue settings
type ScheduleConfig struct {
	SingleEventDelay time.Duration `json:"singleEventDelay" yaml:"singleEventDelay"`
	PollInterval     time.Duration `json:"pollInterval" yaml:"pollInterval"`
	BusyRetryDelay   time.Duration `json:"busyRetryDelay" yaml:"busyRetryDelay"`
	MaxItemsPerPoll  int           `json:"maxItemsPerPoll" yaml:"maxItemsPerPoll"`
	MaxAttempts      int           `json:"maxAttempts" yaml:"maxAttempts"`
}

// ExportConfig contains snapshot export settings
type ExportConfig struct {
	Enabled          bool          `json:"enabled" yaml:"enabled"`
	Bucket           string        `json:"bucket" yaml:"bucket"`
	Prefix           string        `json:"prefix" yaml:"prefix"`
	Region           string        `json:"region" yaml:"region"`
	Endpoint         string        `json:"endpoint" yaml:"endpoint"`
	AccessKey        string        `json:"-" yaml:"accessKey"`
	SecretKey        string        `json:"-" yaml:"secretKey"`
	UsePathStyle     bool          `json:"usePathStyle" yaml:"usePathStyle"`
	WorkDir          string        `json:"workDir" yaml:"workDir"`
	FailureThreshold int           `json:"failureThreshold" yaml:"failureThreshold"`
	FailureWindow    time.Duration `json:"failureWindow" yaml:"failureWindow"`
	OpenDuration     time.Duration `json:"openDuration" yaml:"openDuration"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "swatches",
			Username:        "postgres",
			SSLMode:         "disable",
			MaxConnections:  10,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 5 * time.Minute,
			Timeout:         30 * time.Second,
		},
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RunWorker:       true,
		},
		Batch: BatchConfig{
			LockStaleAfter:    6 * time.Hour,
			RunningStatus:     "Product swatches update is running ..",
			DoneStatus:        "Product swatches update has been run.",
			InterruptedStatus: "Product swatches update was interrupted.",
		},
		Schedule: ScheduleConfig{
			SingleEventDelay: 10 * time.Second,
			PollInterval:     15 * time.Second,
			BusyRetryDelay:   time.Minute,
			MaxItemsPerPoll:  10,
			MaxAttempts:      5,
		},
		Export: ExportConfig{
			Prefix:           "swatches",
			Region:           "us-east-1",
			FailureThreshold: 3,
			FailureWindow:    5 * time.Minute,
			OpenDuration:     time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfigFile overlays a YAML file on top of DefaultConfig.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return &ConfigError{Field: "database.port", Message: "must be a valid TCP port"}
	}

	if c.Database.MaxConnections <= 0 {
		return &ConfigError{Field: "database.maxConnections", Message: "must be greater than 0"}
	}

	if c.Database.UseIAMAuth && c.Database.Region == "" {
		return &ConfigError{Field: "database.region", Message: "is required when useIAMAuth is enabled"}
	}

	if c.Batch.LockStaleAfter <= 0 {
		return &ConfigError{Field: "batch.lockStaleAfter", Message: "must be greater than 0"}
	}

	if c.Schedule.SingleEventDelay < 0 {
		return &ConfigError{Field: "schedule.singleEventDelay", Message: "must not be negative"}
	}

	if c.Schedule.PollInterval <= 0 {
		return &ConfigError{Field: "schedule.pollInterval", Message: "must be greater than 0"}
	}

	if c.Schedule.MaxItemsPerPoll <= 0 {
		return &ConfigError{Field: "schedule.maxItemsPerPoll", Message: "must be greater than 0"}
	}

	if c.Export.Enabled {
		if c.Export.Bucket == "" {
			return &ConfigError{Field: "export.bucket", Message: "is required when export is enabled"}
		}
		if (c.Export.AccessKey == "") != (c.Export.SecretKey == "") {
			return &ConfigError{Field: "export.accessKey", Message: "accessKey and secretKey must be set together"}
		}
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be json or console"}
	}

	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
