package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/penwyp/go-logviewer/internal/application/report"
	"github.com/penwyp/go-logviewer/internal/core/host"
	"github.com/penwyp/go-logviewer/internal/data/parser"
	"github.com/penwyp/go-logviewer/internal/data/scanner"
	"github.com/penwyp/go-logviewer/internal/data/tombstone"
	"github.com/penwyp/go-logviewer/internal/util"
	"github.com/spf13/cobra"
)

var (
	// Logging related
	debug   bool
	logFile string

	// Device related
	hostConfig   string
	tombstoneDir string
	timezone     string

	rootCmd = &cobra.Command{
		Use:   "go-logviewer",
		Short: "Error report viewer",
		Long: `go-logviewer displays and exports crash, ANR and other error reports.

Reports are read from event files (JSON) as produced by the system's error
reporting. Native crashes can be matched against the text tombstones kept in
the tombstone directory to show the full crash dump.

Examples:
  go-logviewer show event.json                      # Show a report
  go-logviewer show --more-info event.json          # Show the full text tombstone
  go-logviewer export event.json --out /tmp         # Save a report to a file
  go-logviewer find --stack-trace-file trace.txt    # Locate the matching tombstone
  go-logviewer watch --inbox ~/reports              # Show reports as they arrive`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

const (
	defaultLogFile    = "~/.go-logviewer/logs/app.log"
	defaultHostConfig = "~/.go-logviewer/host.yaml"
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", defaultLogFile,
		"Log file path (empty disables file logging)")

	rootCmd.PersistentFlags().StringVar(&hostConfig, "host-config", defaultHostConfig,
		"Host properties file (YAML); built-in defaults are used when it does not exist")
	rootCmd.PersistentFlags().StringVar(&tombstoneDir, "tombstone-dir", scanner.DefaultTombstoneDir,
		"Directory holding text tombstones")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "Local",
		"Timezone for export file names (e.g., UTC, Europe/Berlin)")
}

func setup(cmd *cobra.Command, args []string) error {
	logLevel := "info"
	if debug {
		logLevel = "debug"
	}

	path := ""
	if logFile != "" {
		path = expandPath(logFile)
		if err := ensureDir(filepath.Dir(path)); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	return util.InitLogger(logLevel, path, debug)
}

func Execute() error {
	return rootCmd.Execute()
}

// runtimeEnv bundles what the subcommands share.
type runtimeEnv struct {
	host   host.Host
	finder *tombstone.Finder
	source *report.Source
	parser *parser.Parser
	clock  *util.Clock
}

func newRuntimeEnv(cmd *cobra.Command) (*runtimeEnv, error) {
	configPath := ""
	if hostConfig != "" {
		configPath = expandPath(hostConfig)
	}
	cfg, err := loadHostConfig(configPath, cmd.Flags().Changed("host-config"))
	if err != nil {
		return nil, err
	}
	clock, err := util.NewClock(timezone)
	if err != nil {
		return nil, err
	}

	h := host.New(cfg)
	finder := tombstone.NewFinder(expandPath(tombstoneDir))
	return &runtimeEnv{
		host:   h,
		finder: finder,
		source: report.NewSource(h, finder),
		parser: parser.NewParser(runtime.NumCPU()),
		clock:  clock,
	}, nil
}

// loadHostConfig reads path, falling back to defaults when the file is
// missing unless it was named explicitly.
func loadHostConfig(path string, explicit bool) (*host.Config, error) {
	cfg, err := host.LoadConfig(path)
	if err == nil {
		util.LogDebugf("Loaded host config from %s", path)
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return host.DefaultConfig(), nil
	}
	return nil, fmt.Errorf("failed to load host config: %w", err)
}

// Helper functions

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
