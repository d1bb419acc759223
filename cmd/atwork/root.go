package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/cgast/atwork/internal/config"
	"github.com/cgast/atwork/internal/inspector"
	"github.com/cgast/atwork/pkg/events"
	"github.com/cgast/atwork/pkg/refbox"
	"github.com/cgast/atwork/pkg/taskspec"
	"github.com/cgast/atwork/pkg/userdata"
)

// app carries what every command needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	jsonOut    bool
	noColor    bool

	cfg    config.Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr, cfg: config.DefaultConfig()}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "atwork",
		Short:         "Parse and acquire RoboCup@Work referee box task specifications",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath(), "Config file (.yaml or .toml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Print JSON instead of text")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable styled output")

	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.AddCommand(
		newParseCmd(a),
		newFetchCmd(a),
		newRunCmd(a),
		newServeCmd(a),
		newFixturesCmd(a),
	)
	return root
}

func defaultConfigPath() string {
	if p := os.Getenv("ATWORK_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(".atwork", "config.yaml")
}

func (a *app) load() error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	return nil
}

// styled reports whether stdout is a terminal that gets lipgloss output.
func (a *app) styled() bool {
	if a.noColor || a.jsonOut {
		return false
	}
	f, ok := a.stdout.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// taskType resolves a --test flag value, falling back to the config.
func (a *app) taskType(flag string) (taskspec.TaskType, error) {
	if flag == "" {
		return a.cfg.TaskType(), nil
	}
	return taskspec.ParseTaskType(flag)
}

// fetcher returns the referee box client, or the built-in specification
// for t in simulation mode.
func (a *app) fetcher(t taskspec.TaskType, simulate bool) (refbox.Fetcher, error) {
	if simulate || a.cfg.Simulation {
		return refbox.Simulated(t)
	}
	c := refbox.NewClient(a.cfg.Refbox.Host, a.cfg.Refbox.Port, a.cfg.Refbox.Team)
	c.Timeout = a.cfg.Refbox.Timeout()
	c.Logger = a.logger
	return c, nil
}

// openStore opens the persistent userdata store from the config.
func (a *app) openStore() (userdata.Store, error) {
	path := a.cfg.StorePath
	if path == "" {
		return userdata.NewMemoryStore(), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return userdata.NewBoltStore(path)
}

// startInspector serves the inspector in the background when enabled.
func (a *app) startInspector(ctx context.Context, port int, bus *events.MemoryBus, store userdata.Store) {
	if port <= 0 {
		return
	}
	inspector.New(bus, store, a.logger).StartAsync(ctx, port)
	fmt.Fprintf(a.stderr, "Inspector running at http://localhost:%d\n", port)
}
