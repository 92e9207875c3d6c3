package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	Annotations AnnotationsConfig `mapstructure:"annotations"`
	Log         LogConfig         `mapstructure:"log"`
	Layout      LayoutConfig      `mapstructure:"layout"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AnnotationsConfig holds resolver settings.
type AnnotationsConfig struct {
	// PersistBackground keeps background values on screen when the
	// foreground volume has no DICOM identity.
	PersistBackground bool `mapstructure:"persist_background"`
}

// LogConfig holds logging settings. An empty File logs to stdout only.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	JSON       bool   `mapstructure:"json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// LayoutConfig points at a corner text layout; empty uses the built in one.
type LayoutConfig struct {
	Path string `mapstructure:"path"`
}

// New returns a viper instance with defaults, the optional config file and
// CORNERTEXT_ env overrides applied. Callers bind flags before Load.
func New() (*viper.Viper, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "cornertext", "dicom.db"))
	v.SetDefault("annotations.persist_background", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("layout.path", "")

	v.SetConfigType("yaml")

	cfgPath := os.Getenv("CORNERTEXT_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "cornertext"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("CORNERTEXT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// a missing file is fine, a broken one is not
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(cfgPath == "" && os.IsNotExist(err)) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load unmarshals v into a Config.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
