package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgast/atwork/pkg/taskspec"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "192.168.51.167", cfg.Refbox.Host)
	assert.Equal(t, 11111, cfg.Refbox.Port)
	assert.Equal(t, "b-it-bots", cfg.Refbox.Team)
	assert.Equal(t, 30*time.Second, cfg.Refbox.Timeout())
	assert.False(t, cfg.Simulation)
	assert.Equal(t, taskspec.TransportationTest, cfg.TaskType())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
refbox:
  host: 10.0.0.5
  port: 12000
  team: tester
  timeout_seconds: 5
simulation: true
test: BNT
log_level: debug
inspector:
  enabled: true
  port: 4300
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5", cfg.Refbox.Host)
	assert.Equal(t, 12000, cfg.Refbox.Port)
	assert.Equal(t, "tester", cfg.Refbox.Team)
	assert.Equal(t, 5*time.Second, cfg.Refbox.Timeout())
	assert.True(t, cfg.Simulation)
	assert.Equal(t, taskspec.NavigationTest, cfg.TaskType())
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.True(t, cfg.Inspector.Enabled)
	assert.Equal(t, 4300, cfg.Inspector.Port)
	// unset keys keep defaults
	assert.Equal(t, filepath.Join(".atwork", "userdata.db"), cfg.StorePath)
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
test = "PPT"
log_level = "warn"

[refbox]
host = "127.0.0.1"
port = 5555
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Refbox.Host)
	assert.Equal(t, 5555, cfg.Refbox.Port)
	assert.Equal(t, "b-it-bots", cfg.Refbox.Team)
	assert.Equal(t, taskspec.PrecisionPlacementTest, cfg.TaskType())
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}

func TestLoadConfigMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigHostOverride(t *testing.T) {
	t.Setenv(HostEnv, "172.16.0.1")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "172.16.0.1", cfg.Refbox.Host)

	path := writeFile(t, "config.yaml", "refbox:\n  host: 10.0.0.5\n")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "172.16.0.1", cfg.Refbox.Host)
}

func TestLoadConfigInterpolation(t *testing.T) {
	t.Setenv("TEAM_NAME", "from-env")
	path := writeFile(t, "config.yaml", "refbox:\n  team: ${TEAM_NAME}\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Refbox.Team)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name, file, content, want string
	}{
		{"bad yaml", "c.yaml", "refbox: [", "parse config"},
		{"bad toml", "c.toml", "refbox = ", "parse config"},
		{"unknown test", "c.yaml", "test: XYZ", "test:"},
		{"bad port", "c.yaml", "refbox:\n  port: 70000", "out of range"},
		{"bad level", "c.yaml", "log_level: loud", "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, tt.file, tt.content))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestSlogLevelDefault(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, Config{LogLevel: "chatty"}.SlogLevel())
	assert.Equal(t, slog.LevelError, Config{LogLevel: "ERROR"}.SlogLevel())
}

func TestInterpolateEnvVars(t *testing.T) {
	t.Setenv("FOO", "bar")
	t.Setenv("NUM_123", "456")

	tests := []struct {
		input string
		want  string
	}{
		{"${FOO}", "bar"},
		{"prefix-${FOO}-suffix", "prefix-bar-suffix"},
		{"${UNSET_VAR}", "${UNSET_VAR}"}, // unresolved stays
		{"${FOO} and ${NUM_123}", "bar and 456"},
		{"no vars here", "no vars here"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, interpolateEnvVars(tt.input), tt.input)
	}
}
