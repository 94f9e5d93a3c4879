// Package config loads CreditFlow configuration.
//
// Precedence: defaults, then a YAML file, then CREDITFLOW_* environment
// variables. A .env file in the working directory is loaded into the
// environment first when present.
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("creditflow.yaml").
//	    Load()
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete CreditFlow configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" env:"SERVER"`
	Log        LogConfig        `yaml:"log" env:"LOG"`
	History    HistoryConfig    `yaml:"history" env:"HISTORY"`
	Export     ExportConfig     `yaml:"export" env:"EXPORT"`
	Drafts     DraftsConfig     `yaml:"drafts" env:"DRAFTS"`
	Validation ValidationConfig `yaml:"validation" env:"VALIDATION"`
}

// ServerConfig configures the HTTP editing surface.
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is json or console.
	Format      string   `yaml:"format" env:"FORMAT"`
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// HistoryConfig configures undo/redo retention.
type HistoryConfig struct {
	// Limit is the maximum number of retained entries; 0 keeps everything.
	Limit int `yaml:"limit" env:"LIMIT"`
}

// ExportConfig configures the workflow document format.
type ExportConfig struct {
	// Format is json or yaml.
	Format string `yaml:"format" env:"FORMAT"`
}

// DraftsConfig configures the draft store.
type DraftsConfig struct {
	// Backend is memory (TTL and LRU map) or sqlite (in-memory SQLite).
	Backend     string        `yaml:"backend" env:"BACKEND"`
	TTL         time.Duration `yaml:"ttl" env:"TTL"`
	MaxMemoryMB int64         `yaml:"max_memory_mb" env:"MAX_MEMORY_MB"`
	Codec       string        `yaml:"codec" env:"CODEC"`
	Compression string        `yaml:"compression" env:"COMPRESSION"`
	// EncryptKey is a hex-encoded AES key; empty disables encryption.
	EncryptKey string `yaml:"encrypt_key" env:"ENCRYPT_KEY"`
}

// Key decodes EncryptKey.
func (d DraftsConfig) Key() ([]byte, error) {
	if d.EncryptKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(d.EncryptKey)
	if err != nil {
		return nil, fmt.Errorf("drafts.encrypt_key: %w", err)
	}
	return key, nil
}

// ValidationConfig configures request validation.
type ValidationConfig struct {
	MaxErrors    int   `yaml:"max_errors" env:"MAX_ERRORS"`
	MaxBodyBytes int64 `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
		History: HistoryConfig{Limit: 100},
		Export:  ExportConfig{Format: "json"},
		Drafts: DraftsConfig{
			Backend:     "memory",
			TTL:         24 * time.Hour,
			MaxMemoryMB: 64,
			Codec:       "msgpack",
			Compression: "zstd",
		},
		Validation: ValidationConfig{
			MaxErrors:    10,
			MaxBodyBytes: 1 << 20,
		},
	}
}

// Loader builds a Config from its sources.
type Loader struct {
	configPath string
	envPrefix  string
	dotenv     bool
}

// NewLoader creates a loader with the CREDITFLOW env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "CREDITFLOW", dotenv: true}
}

// WithConfigPath sets the YAML file to read. A missing file is not an error.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithoutDotenv skips loading .env.
func (l *Loader) WithoutDotenv() *Loader {
	l.dotenv = false
	return l
}

// Load reads every source in precedence order and validates the result.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.dotenv {
		// .env is optional
		_ = godotenv.Load()
	}

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		envTag := t.Field(i).Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}
		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		value := os.Getenv(envKey)
		if value == "" {
			continue
		}
		if err := setFieldValue(field, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}
	return nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []string

	if c.History.Limit < 0 {
		errs = append(errs, "history.limit cannot be negative")
	}
	switch c.Export.Format {
	case "json", "yaml":
	default:
		errs = append(errs, fmt.Sprintf("export.format %q is not json or yaml", c.Export.Format))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q is not json or console", c.Log.Format))
	}
	switch c.Drafts.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("drafts.backend %q is not memory or sqlite", c.Drafts.Backend))
	}
	switch c.Drafts.Compression {
	case "none", "gzip", "zstd":
	default:
		errs = append(errs, fmt.Sprintf("drafts.compression %q is not none, gzip or zstd", c.Drafts.Compression))
	}
	if key, err := c.Drafts.Key(); err != nil {
		errs = append(errs, err.Error())
	} else if n := len(key); n != 0 && n != 16 && n != 24 && n != 32 {
		errs = append(errs, "drafts.encrypt_key must decode to 16, 24 or 32 bytes")
	}
	if c.Drafts.MaxMemoryMB < 0 {
		errs = append(errs, "drafts.max_memory_mb cannot be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
