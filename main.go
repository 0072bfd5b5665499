package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time via ldflags
var version = "dev"

var (
	// Global flags
	appDir     string
	configPath string
	verbose    bool

	// Logger for the headless subcommands; the TUI renders its own status
	logger *zap.Logger
)

// rootCmd opens the interactive dashboard when no subcommand is given
var rootCmd = &cobra.Command{
	Use:   "devloop",
	Short: "devloop - restart and format loop for a Streamlit app checkout",
	Long: `devloop manages the edit-run loop of a Streamlit-style web app:

  - restart: kill whatever listens on the app port, wait for the port to
    free up, relaunch the app with its exact original arguments
  - format:  run autopep8 over the checkout's *.py files (and pages/)
  - watch:   re-format files as they change on disk

Run without arguments to open the interactive dashboard.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The interactive dashboard has its own UI; no logger there.
		// Identified by being the root: referencing rootCmd here would
		// create an initialization cycle.
		if cmd.Parent() == nil {
			return nil
		}
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p := tea.NewProgram(NewModel(cfg), tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

// restartCmd runs the headless restart sequence
var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Kill the listener on the app port and relaunch the app",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		launcher := NewLauncher(cfg, logger)
		launcher.Stdout = os.Stdout
		launcher.Stderr = os.Stderr

		report, err := launcher.Restart(cmd.Context())
		if err != nil {
			return fmt.Errorf("launch failed: %w", err)
		}

		fmt.Printf("relaunched on port %d (pid %d)", cfg.Port, report.AppPID)
		if len(report.Kills) > 0 {
			fmt.Printf("; %s", summarizeKills(report.Kills))
		}
		fmt.Println()
		return nil
	},
}

var (
	formatBatch bool
	formatStage bool
	formatCheck bool
)

// formatCmd runs the formatter pass once
var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Run the auto-formatter over the checkout's source files",
	Long: `Runs autopep8 over every *.py file in the app directory and, when it
exists, the pages/ subdirectory. The tool is installed via pip on demand.

By default each file is processed by its own invocation, logged as it goes.
--batch hands all files to a single invocation instead. --staged rewrites a
file only when formatting changed it; --check only reports what would change.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		norm := NewNormalizer(cfg.AppDir, cfg.Formatter, logger)
		ctx := cmd.Context()

		switch norm.EnsureTool(ctx) {
		case ToolInstalled:
			fmt.Printf("installed %s\n", cfg.Formatter.Tool)
		case ToolMissing:
			fmt.Printf("warning: %s unavailable, invocations will fail\n", cfg.Formatter.Tool)
		}

		if formatBatch {
			files, err := norm.FormatBatch(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("formatted %d file(s)\n", len(files))
			return nil
		}

		mode := ModeInPlace
		if formatStage {
			mode = ModeStaged
		}
		if formatCheck {
			mode = ModeCheck
		}

		results, err := norm.FormatAll(ctx, mode)
		if err != nil {
			return err
		}
		for _, r := range results {
			if r.Err != nil {
				fmt.Printf("  %s: %v\n", r.Path, r.Err)
			} else {
				fmt.Printf("  %s: %s\n", r.Path, r.Outcome)
			}
		}
		fmt.Println(summarizeResults(results))

		if formatCheck {
			for _, r := range results {
				if r.Outcome == FileFormatted {
					return fmt.Errorf("files need formatting")
				}
			}
		}
		return nil
	},
}

// watchCmd keeps formatting files as they change
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-format source files as they change on disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Staged mode keeps the watcher from retriggering on its own writes:
		// an unchanged file is never rewritten.
		w := NewWatcher(cfg, ModeStaged, logger)
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

// versionCmd prints the build version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the devloop version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("devloop", version)
	},
}

// loadConfig resolves the config file and applies the --dir override.
func loadConfig() (Config, error) {
	dir := appDir
	if dir == "" {
		dir = "."
	}

	path := configPath
	if path == "" {
		path = ConfigPath(dir)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		return cfg, err
	}
	if appDir != "" {
		cfg.AppDir = appDir
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&appDir, "dir", "d", "", "app directory (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: <dir>/"+ConfigFilename+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	formatCmd.Flags().BoolVar(&formatBatch, "batch", false, "one aggregate formatter invocation for all files")
	formatCmd.Flags().BoolVar(&formatStage, "staged", false, "rewrite a file only when formatting changed it")
	formatCmd.Flags().BoolVar(&formatCheck, "check", false, "report files that would change, write nothing")
	formatCmd.MarkFlagsMutuallyExclusive("batch", "staged")
	formatCmd.MarkFlagsMutuallyExclusive("batch", "check")
	formatCmd.MarkFlagsMutuallyExclusive("staged", "check")

	rootCmd.AddCommand(restartCmd, formatCmd, watchCmd, versionCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
