// Package config handles cui-prefs configuration loading and defaults.
//
// Values are layered: built-in defaults, then the YAML config file, then
// CUI_* environment variables (a .env file in the working directory is
// loaded into the environment first).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cui-prefs/internal/jsonstore"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the config file name inside the .cui directory.
const FileName = "config.yaml"

// Config represents the contents of .cui/config.yaml.
type Config struct {
	// BaseDir is the directory holding .cui/. Empty means the home directory.
	BaseDir  string         `yaml:"base_dir" mapstructure:"base_dir"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Logger   LoggerConfig   `yaml:"logger" mapstructure:"logger"`
	Metrics  MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
	Security SecurityConfig `yaml:"security" mapstructure:"security"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" mapstructure:"host" validate:"required"`
	Port            int           `yaml:"port" mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"gt=0"`
	// BodyLimit caps request bodies, in echo's size notation ("1M", "512K").
	BodyLimit string `yaml:"body_limit" mapstructure:"body_limit" validate:"required"`
}

type LoggerConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
	// Output is "stderr", "stdout" or a file path.
	Output string `yaml:"output" mapstructure:"output"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

type SecurityConfig struct {
	// CORSAllowedOrigins enables CORS for the listed origins when non-empty.
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" mapstructure:"cors_allowed_origins"`
	// RateLimitRequests is the allowed requests per second per client; 0 disables limiting.
	RateLimitRequests float64 `yaml:"rate_limit_requests" mapstructure:"rate_limit_requests" validate:"gte=0"`
	RateLimitBurst    int     `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst" validate:"gte=0"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            3001,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			BodyLimit:       "1M",
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// Load reads the config file at path (if it exists) and layers environment
// overrides on top of the defaults. An empty path skips the file.
func Load(path string) (Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("parsing config: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("base_dir", d.BaseDir)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)

	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.format", d.Logger.Format)
	v.SetDefault("logger.output", d.Logger.Output)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)

	v.SetDefault("security.cors_allowed_origins", d.Security.CORSAllowedOrigins)
	v.SetDefault("security.rate_limit_requests", d.Security.RateLimitRequests)
	v.SetDefault("security.rate_limit_burst", d.Security.RateLimitBurst)
}

// Write writes the provided configuration to path.
func Write(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := jsonstore.WriteFileAtomic(jsonstore.OS(), path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// WriteDefault writes the default configuration to path.
func WriteDefault(path string) error {
	return Write(path, Default())
}
