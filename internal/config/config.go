package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Library  LibraryConfig  `mapstructure:"library"`
	Triage   TriageConfig   `mapstructure:"triage"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// LibraryConfig selects and configures the media source backing the engine.
type LibraryConfig struct {
	Provider string `mapstructure:"provider"` // "localfs" or "mock"
	Root     string `mapstructure:"root"`     // media root for the localfs provider
	Trash    string `mapstructure:"trash"`    // trash directory; defaults under root
	Watch    bool   `mapstructure:"watch"`    // watch the root for external changes
}

// TriageConfig tunes the deletion-batching engine.
type TriageConfig struct {
	DeleteBatchThreshold int           `mapstructure:"delete_batch_threshold"`
	DeleteFlushDelay     time.Duration `mapstructure:"delete_flush_delay"`
	NoticeDismissDelay   time.Duration `mapstructure:"notice_dismiss_delay"`
	ProcessedLimit       int           `mapstructure:"processed_limit"`
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.swipeclean")
	}

	v.SetEnvPrefix("SWIPECLEAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults + env vars
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8484)

	v.SetDefault("database.path", "./data/swipeclean.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")

	v.SetDefault("library.provider", "localfs")
	v.SetDefault("library.root", "./media")
	v.SetDefault("library.trash", "")
	v.SetDefault("library.watch", true)

	v.SetDefault("triage.delete_batch_threshold", 15)
	v.SetDefault("triage.delete_flush_delay", 3500*time.Millisecond)
	v.SetDefault("triage.notice_dismiss_delay", 3500*time.Millisecond)
	v.SetDefault("triage.processed_limit", 12000)
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
