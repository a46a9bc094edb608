// Package config provides configuration management for dockerfile-analyzer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Output formats supported by the report writer.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Config represents the application configuration.
type Config struct {
	// Report settings
	Format string `mapstructure:"format"`
	Pretty bool   `mapstructure:"pretty"`

	// Execution settings
	Jobs     int  `mapstructure:"jobs"`
	FailFast bool `mapstructure:"fail_fast"`
	Debug    bool `mapstructure:"debug"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("format", FormatJSON)
	v.SetDefault("pretty", false)
	v.SetDefault("jobs", runtime.NumCPU())
	v.SetDefault("fail_fast", false)
	v.SetDefault("debug", false)

	v.SetEnvPrefix("DOCKERFILE_ANALYZER")
	v.AutomaticEnv()

	v.BindEnv("format", "DOCKERFILE_ANALYZER_FORMAT")
	v.BindEnv("jobs", "DOCKERFILE_ANALYZER_JOBS")
	v.BindEnv("debug", "DOCKERFILE_ANALYZER_DEBUG")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(".dockerfile-analyzer")
		v.SetConfigType("json")
		v.AddConfigPath(homeDir())
		v.AddConfigPath(filepath.Join(homeDir(), ".dockerfile-analyzer"))
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatJSON, FormatText:
	default:
		return fmt.Errorf("unsupported output format %q (expected %q or %q)",
			c.Format, FormatJSON, FormatText)
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp"
	}
	return home
}
