package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sentinel/internal/config"
	"sentinel/internal/logging"
)

var (
	// Global flags
	verbose    bool
	homeDir    string
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "sentinel - human-gated patch bundle delivery",
	Long: `sentinel delivers patch scripts to registered project directories.

Bundles named SentScript-<project-id>-<token>.txt (or .docx) are picked up
from a watched project directory or a remote document store. Every script
is shown in full and runs only after you approve it.

Helper commands insert and patch named block markers in source files so
scripts can replace one function at a time.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "State directory (default: ~/.sentinel or SENTINEL_HOME)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <home>/config.yaml)")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(patchCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(blocksCmd)
}

// setup loads configuration and initializes logging for every command.
func setup(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		home := homeDir
		if home == "" {
			home = os.Getenv("SENTINEL_HOME")
		}
		if home == "" {
			home = config.DefaultHome()
		}
		path = filepath.Join(home, "config.yaml")
	}

	c, err := config.Load(path)
	if err != nil {
		return err
	}
	if homeDir != "" {
		c.Home = homeDir
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logging.Initialize(c.Home, logging.Options{
		DebugMode:  c.Logging.DebugMode,
		Verbose:    verbose,
		Level:      c.Logging.Level,
		JSONFormat: c.Logging.JSONFormat,
		Categories: c.Logging.Categories,
	}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	cfg = c
	logger = logging.Get(logging.CategoryBoot).Zap()
	logger.Debug("configuration loaded", zap.String("config", path), zap.String("home", c.Home))
	return nil
}

func main() {
	err := rootCmd.Execute()
	logging.CloseAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
