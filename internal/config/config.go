package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/cgast/atwork/pkg/refbox"
	"github.com/cgast/atwork/pkg/taskspec"
)

// HostEnv overrides the referee box host from the environment.
const HostEnv = "ATWORK_REFBOX_HOST"

// Config represents the runtime configuration from .atwork/config.yaml
// (or config.toml).
type Config struct {
	Refbox     RefboxConfig    `yaml:"refbox" toml:"refbox"`
	Simulation bool            `yaml:"simulation" toml:"simulation"`
	Test       string          `yaml:"test" toml:"test"`
	LogLevel   string          `yaml:"log_level" toml:"log_level"`
	StorePath  string          `yaml:"store_path" toml:"store_path"`
	Inspector  InspectorConfig `yaml:"inspector" toml:"inspector"`
}

// RefboxConfig locates the referee box.
type RefboxConfig struct {
	Host           string `yaml:"host" toml:"host"`
	Port           int    `yaml:"port" toml:"port"`
	Team           string `yaml:"team" toml:"team"`
	TimeoutSeconds int    `yaml:"timeout_seconds" toml:"timeout_seconds"`
}

// InspectorConfig defines inspector server settings.
type InspectorConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
	Port    int  `yaml:"port" toml:"port"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Refbox: RefboxConfig{
			Host:           refbox.DefaultHost,
			Port:           refbox.DefaultPort,
			Team:           refbox.DefaultTeam,
			TimeoutSeconds: int(refbox.DefaultTimeout / time.Second),
		},
		Test:      string(taskspec.TransportationTest),
		LogLevel:  "info",
		StorePath: filepath.Join(".atwork", "userdata.db"),
		Inspector: InspectorConfig{Port: 4200},
	}
}

// LoadConfig reads a runtime config file. The format follows the extension:
// .toml files are decoded as TOML, everything else as YAML. ${VAR} references
// are expanded before decoding. Returns the default config if the file
// doesn't exist.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg.applyEnv(), nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	interpolated := interpolateEnvVars(string(data))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(interpolated, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg = cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) applyEnv() Config {
	if host, ok := os.LookupEnv(HostEnv); ok && host != "" {
		c.Refbox.Host = host
	}
	return c
}

// Validate checks values the loaders cannot.
func (c Config) Validate() error {
	if _, err := taskspec.ParseTaskType(c.Test); err != nil {
		return fmt.Errorf("test: %w", err)
	}
	if c.Refbox.Port <= 0 || c.Refbox.Port > 65535 {
		return fmt.Errorf("refbox.port %d out of range", c.Refbox.Port)
	}
	if _, ok := levels[strings.ToLower(c.LogLevel)]; !ok {
		return fmt.Errorf("log_level %q: want debug, info, warn or error", c.LogLevel)
	}
	return nil
}

// TaskType returns the configured default test.
func (c Config) TaskType() taskspec.TaskType {
	t, err := taskspec.ParseTaskType(c.Test)
	if err != nil {
		return taskspec.TransportationTest
	}
	return t
}

// Timeout is the referee box reply timeout.
func (c RefboxConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	if l, ok := levels[strings.ToLower(c.LogLevel)]; ok {
		return l
	}
	return slog.LevelInfo
}

// envVarPattern matches ${VAR_NAME} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// interpolateEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func interpolateEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimPrefix(strings.TrimSuffix(match, "}"), "${")
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match // Leave unresolved if not set.
	})
}
