package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration, loadable from a YAML file with
// flag overrides on top.
type Config struct {
	LogLevel string `yaml:"logLevel"`
	JSONLogs bool   `yaml:"jsonLogs"`

	DataDir    string `yaml:"dataDir"`
	StorageID  string `yaml:"storageId"`
	SessionKey string `yaml:"sessionKey"`

	MetricsAddr string `yaml:"metricsAddr"`

	AlarmSound string `yaml:"alarmSound"`

	Server ServerConfig `yaml:"server"`
}

// ServerConfig configures the optional reconciliation channel. An
// empty BaseURL disables it entirely; the engine then runs local-only.
type ServerConfig struct {
	BaseURL      string        `yaml:"baseUrl"`
	UserID       string        `yaml:"userId"`
	PingInterval time.Duration `yaml:"pingInterval"`
	BackoffBase  time.Duration `yaml:"backoffBase"`
	BackoffMax   time.Duration `yaml:"backoffMax"`
	MaxAttempts  int           `yaml:"maxAttempts"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		LogLevel:    "info",
		DataDir:     "./data",
		StorageID:   "stovetop",
		SessionKey:  "default",
		MetricsAddr: ":9090",
		Server: ServerConfig{
			PingInterval: 30 * time.Second,
			BackoffBase:  time.Second,
			BackoffMax:   30 * time.Second,
			MaxAttempts:  5,
		},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
