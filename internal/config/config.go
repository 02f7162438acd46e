// This file defines the configuration structure for the application.
package config

import (
	// use Viper for loading the config.yml file.
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port     int `mapstructure:"port"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Uploads struct {
		Path      string `mapstructure:"path"`
		MaxSizeMB int64  `mapstructure:"max_size_mb"`
	} `mapstructure:"uploads"`
	Cache struct {
		Path       string `mapstructure:"path"`
		MaxAgeDays int    `mapstructure:"max_age_days"`
	} `mapstructure:"cache"`
	LLM struct {
		APIKey      string        `mapstructure:"api_key"`
		Model       string        `mapstructure:"model"`
		MaxTokens   int           `mapstructure:"max_tokens"`
		Temperature float64       `mapstructure:"temperature"`
		Timeout     time.Duration `mapstructure:"timeout"`
	} `mapstructure:"llm"`
	Analysis struct {
		OverallTimeout time.Duration `mapstructure:"overall_timeout"`
		ItemDelay      time.Duration `mapstructure:"item_delay"`
	} `mapstructure:"analysis"`
	WebSocket struct {
		HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
		DeadmanTimeout    time.Duration `mapstructure:"deadman_timeout"`
	} `mapstructure:"websocket"`
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or "yaml"
	viper.AddConfigPath(".")      // looking for config in the current directory

	// --- Environment Variable Overrides ---
	// This tells Viper to look for environment variables with a "LITSCAN_" prefix.
	// e.g., LITSCAN_LLM_API_KEY will override the `llm.api_key` key.
	viper.SetEnvPrefix("LITSCAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("port", 8000)
	viper.SetDefault("database.path", "./litscan.db")
	viper.SetDefault("uploads.path", "./uploads")
	viper.SetDefault("uploads.max_size_mb", 50)
	viper.SetDefault("cache.path", "./cache")
	viper.SetDefault("cache.max_age_days", 7)
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.model", "claude-sonnet-4-20250514")
	viper.SetDefault("llm.max_tokens", 8192)
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.timeout", "30s")
	viper.SetDefault("analysis.overall_timeout", "600s")
	viper.SetDefault("analysis.item_delay", "500ms")
	viper.SetDefault("websocket.heartbeat_interval", "30s")
	viper.SetDefault("websocket.deadman_timeout", "180s")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error and use defaults
		} else {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
