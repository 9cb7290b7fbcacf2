package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Clustering
	DefaultK int    `mapstructure:"default_k" yaml:"default_k"`
	KMin     int    `mapstructure:"k_min" yaml:"k_min"`
	KMax     int    `mapstructure:"k_max" yaml:"k_max"`
	Seed     uint64 `mapstructure:"seed" yaml:"seed"`
	Restarts int    `mapstructure:"restarts" yaml:"restarts"`
	MaxIter  int    `mapstructure:"max_iter" yaml:"max_iter"`

	// HTTP server
	ListenAddr    string `mapstructure:"listen_addr" yaml:"listen_addr"`
	MaxUploadMB   int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	SessionTTLMin int    `mapstructure:"session_ttl_min" yaml:"session_ttl_min"`

	// Assignment persistence (Redis)
	RedisAddr      string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisDB        int    `mapstructure:"redis_db" yaml:"redis_db"`
	RedisKeyTTLSec int    `mapstructure:"redis_key_ttl_sec" yaml:"redis_key_ttl_sec"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Keys lists every settable key in display order.
var Keys = []string{
	"default_k", "k_min", "k_max", "seed", "restarts", "max_iter",
	"listen_addr", "max_upload_mb", "session_ttl_min",
	"redis_addr", "redis_db", "redis_key_ttl_sec",
	"log_level", "log_format",
}

// Dir returns ~/.segmenta.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".segmenta"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.segmenta/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("SEGMENTA")
	v.AutomaticEnv()

	// Clustering defaults
	v.SetDefault("default_k", 3)
	v.SetDefault("k_min", 2)
	v.SetDefault("k_max", 5)
	v.SetDefault("seed", 42)
	v.SetDefault("restarts", 10)
	v.SetDefault("max_iter", 300)
	// Server defaults
	v.SetDefault("listen_addr", "127.0.0.1:5000")
	v.SetDefault("max_upload_mb", 10)
	v.SetDefault("session_ttl_min", 60)
	// Redis defaults; an empty address disables persistence
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_key_ttl_sec", 0)
	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Global) Validate() error {
	switch {
	case c.DefaultK < 1:
		return fmt.Errorf("default_k must be >= 1, got %d", c.DefaultK)
	case c.KMin < 2 || c.KMin > c.KMax:
		return fmt.Errorf("k_min/k_max must satisfy 2 <= k_min <= k_max, got [%d, %d]", c.KMin, c.KMax)
	case c.Restarts < 1:
		return fmt.Errorf("restarts must be >= 1, got %d", c.Restarts)
	case c.MaxIter < 1:
		return fmt.Errorf("max_iter must be >= 1, got %d", c.MaxIter)
	case c.MaxUploadMB < 1:
		return fmt.Errorf("max_upload_mb must be >= 1, got %d", c.MaxUploadMB)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}
