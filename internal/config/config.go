package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const dirName = ".csvscope"

// Global configuration structure.
type Global struct {
	// Ingestion
	MaxFileSizeMB int `mapstructure:"max_file_size_mb" yaml:"max_file_size_mb"`
	MaxRows       int `mapstructure:"max_rows" yaml:"max_rows"`
	SampleRows    int `mapstructure:"sample_rows" yaml:"sample_rows"`

	// Cleaning
	DropThreshold float64 `mapstructure:"drop_threshold" yaml:"drop_threshold"`

	// Score cache
	CacheTTLSec     int `mapstructure:"cache_ttl_sec" yaml:"cache_ttl_sec"`
	CacheMaxEntries int `mapstructure:"cache_max_entries" yaml:"cache_max_entries"`

	// HTTP server
	ListenAddr    string `mapstructure:"listen_addr" yaml:"listen_addr"`
	SessionTTLMin int    `mapstructure:"session_ttl_min" yaml:"session_ttl_min"`

	// Run history
	HistoryEnabled bool   `mapstructure:"history_enabled" yaml:"history_enabled"`
	HistoryDB      string `mapstructure:"history_db" yaml:"history_db"`

	// Output
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat    string `mapstructure:"log_format" yaml:"log_format"`
	OutputFormat string `mapstructure:"output_format" yaml:"output_format"`
}

// Keys lists every settable key in display order.
var Keys = []string{
	"max_file_size_mb", "max_rows", "sample_rows", "drop_threshold",
	"cache_ttl_sec", "cache_max_entries", "listen_addr", "session_ttl_min",
	"history_enabled", "history_db", "log_level", "log_format", "output_format",
}

// MaxFileSizeBytes is the upload limit in bytes.
func (c *Global) MaxFileSizeBytes() int64 { return int64(c.MaxFileSizeMB) << 20 }

// CacheTTL is the score cache lifetime.
func (c *Global) CacheTTL() time.Duration { return time.Duration(c.CacheTTLSec) * time.Second }

// SessionTTL is how long an idle server session lives.
func (c *Global) SessionTTL() time.Duration { return time.Duration(c.SessionTTLMin) * time.Minute }

// Get returns the value of key formatted for display.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "max_file_size_mb":
		return strconv.Itoa(c.MaxFileSizeMB), nil
	case "max_rows":
		return strconv.Itoa(c.MaxRows), nil
	case "sample_rows":
		return strconv.Itoa(c.SampleRows), nil
	case "drop_threshold":
		return strconv.FormatFloat(c.DropThreshold, 'g', -1, 64), nil
	case "cache_ttl_sec":
		return strconv.Itoa(c.CacheTTLSec), nil
	case "cache_max_entries":
		return strconv.Itoa(c.CacheMaxEntries), nil
	case "listen_addr":
		return c.ListenAddr, nil
	case "session_ttl_min":
		return strconv.Itoa(c.SessionTTLMin), nil
	case "history_enabled":
		return strconv.FormatBool(c.HistoryEnabled), nil
	case "history_db":
		return c.HistoryDB, nil
	case "log_level":
		return c.LogLevel, nil
	case "log_format":
		return c.LogFormat, nil
	case "output_format":
		return c.OutputFormat, nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

// Set parses val for key and stores it.
func (c *Global) Set(key, val string) error {
	switch key {
	case "max_file_size_mb":
		return setInt(&c.MaxFileSizeMB, key, val, 1)
	case "max_rows":
		return setInt(&c.MaxRows, key, val, 0)
	case "sample_rows":
		return setInt(&c.SampleRows, key, val, 0)
	case "drop_threshold":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 || f > 1 {
			return fmt.Errorf("invalid float for drop_threshold: %v (want 0..1)", val)
		}
		c.DropThreshold = f
	case "cache_ttl_sec":
		return setInt(&c.CacheTTLSec, key, val, 0)
	case "cache_max_entries":
		return setInt(&c.CacheMaxEntries, key, val, 0)
	case "listen_addr":
		c.ListenAddr = val
	case "session_ttl_min":
		return setInt(&c.SessionTTLMin, key, val, 1)
	case "history_enabled":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for history_enabled: %v", val)
		}
		c.HistoryEnabled = b
	case "history_db":
		c.HistoryDB = val
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "warning", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
	case "log_format":
		switch val {
		case "text", "json", "cli":
			c.LogFormat = val
		default:
			return fmt.Errorf("invalid log_format: %s (use text, json or cli)", val)
		}
	case "output_format":
		switch val {
		case "text", "json", "yaml":
			c.OutputFormat = val
		default:
			return fmt.Errorf("invalid output_format: %s (use text, json or yaml)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func setInt(dst *int, key, val string, lo int) error {
	i, err := strconv.Atoi(val)
	if err != nil || i < lo {
		return fmt.Errorf("invalid int for %s: %v", key, val)
	}
	*dst = i
	return nil
}

// Dir returns ~/.csvscope.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.csvscope/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
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
	v.SetEnvPrefix("CSVSCOPE")
	v.AutomaticEnv()

	v.SetDefault("max_file_size_mb", 5)
	v.SetDefault("max_rows", 100000)
	v.SetDefault("sample_rows", 5)
	v.SetDefault("drop_threshold", 0.5)
	v.SetDefault("cache_ttl_sec", 3600)
	v.SetDefault("cache_max_entries", 128)
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("session_ttl_min", 60)
	v.SetDefault("history_enabled", false)
	v.SetDefault("history_db", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("output_format", "text")

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
	if c.HistoryDB == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.HistoryDB = filepath.Join(dir, "history.db")
	}
	return &c, nil
}
