// Package config loads picoring0 settings from file, environment and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. PICORING0_SERVER_PORT
const EnvPrefix = "PICORING0"

// Config is the complete runtime configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Poll    PollConfig    `mapstructure:"poll"`
	Logging LoggingConfig `mapstructure:"logging"`
	CPU     CPUConfig     `mapstructure:"cpu"`
	Drives  DrivesConfig  `mapstructure:"drives"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Bind string `mapstructure:"bind"`
	Port int    `mapstructure:"port"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Bind, s.Port)
}

// PollConfig configures the processor update cadence
type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// LoggingConfig configures the logger
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CPUConfig configures the processor sampling engine. Zero TjMax keeps the
// resolved per-core value.
type CPUConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	TSlope  float64 `mapstructure:"tslope"`
	TjMax   float64 `mapstructure:"tjmax"`
}

// DrivesConfig configures SMART polling. Empty Indices enumerates drives.
type DrivesConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Indices  []int         `mapstructure:"indices"`
	Interval time.Duration `mapstructure:"interval"`
}

// flagKeys maps command-line flags to configuration keys
var flagKeys = map[string]string{
	"bind":      "server.bind",
	"port":      "server.port",
	"log-level": "logging.level",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.bind", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("poll.interval", "1s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("cpu.enabled", true)
	v.SetDefault("cpu.tslope", 1.0)
	v.SetDefault("cpu.tjmax", 0.0)
	v.SetDefault("drives.enabled", true)
	v.SetDefault("drives.indices", []int{})
	v.SetDefault("drives.interval", "1m")
}

// Load reads the configuration. An explicit path must exist; otherwise
// picoring0.yaml is searched in the user config dir, /etc/picoring0 and the
// working directory, and its absence is not an error.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("picoring0")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "picoring0"))
		}
		v.AddConfigPath("/etc/picoring0")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag --%s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Poll.Interval < time.Second {
		return fmt.Errorf("poll.interval %s is below the 1s scheduler resolution", c.Poll.Interval)
	}
	if c.Drives.Enabled && c.Drives.Interval < time.Second {
		return fmt.Errorf("drives.interval %s is below the 1s scheduler resolution", c.Drives.Interval)
	}
	if c.CPU.TSlope <= 0 {
		return fmt.Errorf("cpu.tslope must be positive, got %g", c.CPU.TSlope)
	}
	if c.CPU.TjMax < 0 {
		return fmt.Errorf("cpu.tjmax must not be negative, got %g", c.CPU.TjMax)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not console or json", c.Logging.Format)
	}
	for _, i := range c.Drives.Indices {
		if i < 0 {
			return fmt.Errorf("drives.indices contains negative index %d", i)
		}
	}
	return nil
}
