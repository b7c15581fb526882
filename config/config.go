package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // leave.timezone must resolve on minimal images

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server  Server  `mapstructure:"server"`
	Storage Storage `mapstructure:"storage"`
	Leave   Leave   `mapstructure:"leave"`
	Events  Events  `mapstructure:"events"`
	Log     Log     `mapstructure:"log"`
}

// Server configuration
type Server struct {
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// Storage configuration
type Storage struct {
	Driver  string        `mapstructure:"driver"` // sqlite, postgres or memory
	DSN     string        `mapstructure:"dsn"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Leave policy configuration
type Leave struct {
	Timezone            string `mapstructure:"timezone"`
	RejectRepeatedDates bool   `mapstructure:"rejectRepeatedDates"`
}

// Events configuration. No brokers disables publishing.
type Events struct {
	Brokers       []string      `mapstructure:"brokers"`
	Topic         string        `mapstructure:"topic"`
	RetryInterval time.Duration `mapstructure:"retryInterval"`
}

// Log configuration
type Log struct {
	Level string `mapstructure:"level"`
}

// Location resolves Leave.Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Leave.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Leave.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid leave.timezone %q: %w", c.Leave.Timezone, err)
	}
	return loc, nil
}

// LoadConfig loads configuration from YAML files in configDir.
//
// app-config.yaml provides the base, <CONFIG_ENV>.yaml (default "local") is
// merged on top, then LEAVE_* environment variables win. A .env file in the
// working directory is loaded first and never overrides real env vars.
// Missing files are fine: defaults and env vars are enough to run.
func LoadConfig(configDir string) (*Config, error) {
	_ = godotenv.Load()

	configEnv := os.Getenv("CONFIG_ENV")
	if configEnv == "" {
		configEnv = "local"
	}

	v := viper.New()
	setDefaults(v)

	baseConfigPath := filepath.Join(configDir, "app-config.yaml")
	baseConfigExists := false
	if _, err := os.Stat(baseConfigPath); err == nil {
		v.SetConfigFile(baseConfigPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read base config file: %w", err)
		}
		baseConfigExists = true
	}

	envConfigPath := filepath.Join(configDir, configEnv+".yaml")
	if _, err := os.Stat(envConfigPath); err == nil {
		v.SetConfigFile(envConfigPath)
		if baseConfigExists {
			if err := v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("failed to merge env config file: %w", err)
			}
		} else if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read env config file: %w", err)
		}
	}

	v.SetEnvPrefix("LEAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("server.port", "LEAVE_SERVER_PORT", "PORT")
	v.BindEnv("storage.dsn", "LEAVE_STORAGE_DSN", "DATABASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowedOrigins", []string{"http://localhost:5173", "http://localhost:8080"})
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", "leave_management.db")
	v.SetDefault("storage.timeout", 5*time.Second)
	v.SetDefault("leave.timezone", "UTC")
	v.SetDefault("leave.rejectRepeatedDates", false)
	v.SetDefault("events.brokers", []string{})
	v.SetDefault("events.topic", "leave_granted")
	v.SetDefault("events.retryInterval", 30*time.Second)
	v.SetDefault("log.level", "info")
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Storage.Timeout <= 0 {
		return fmt.Errorf("storage.timeout must be positive, got %s", c.Storage.Timeout)
	}
	if len(c.Events.Brokers) > 0 && c.Events.RetryInterval <= 0 {
		return fmt.Errorf("events.retryInterval must be positive, got %s", c.Events.RetryInterval)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
