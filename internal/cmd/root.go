// Package cmd provides the CLI commands for chatterm.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inercia/chatterm/internal/appdir"
	"github.com/inercia/chatterm/internal/config"
	"github.com/inercia/chatterm/internal/logging"
)

var (
	// Global flags
	configPath    string
	endpointFlag  string
	userIDFlag    string
	debug         bool
	logLevel      string // --log-level flag (debug, info, warn, error)
	logFile       string
	logComponents string

	// Loaded configuration
	cfg *config.Config
	// configResult tells where cfg was loaded from
	configResult *config.LoadResult
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chatterm",
	Short: "chatterm - chat with a streaming HTTP endpoint from the terminal",
	Long: `chatterm sends each message you type to a chat endpoint as a JSON POST
and prints the plain-text answer as it streams in.

Run without arguments for an interactive session, or use --once to send a
single message and exit:
  chatterm --once "What is the capital of France?"`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for help, completion and for writing a fresh config file
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd == configCreateCmd {
			return nil
		}

		if err := appdir.EnsureDir(); err != nil {
			return fmt.Errorf("failed to create chatterm directory: %w", err)
		}

		var err error
		configResult, err = config.LoadWithFallback(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = configResult.Config

		if endpointFlag != "" {
			cfg.Endpoint = endpointFlag
		}
		if userIDFlag != "" {
			cfg.UserID = userIDFlag
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		if err := initLogging(cfg); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		logging.CLI().Debug("configuration loaded",
			"source", configResult.Source.String(),
			"path", configResult.SourcePath,
			"endpoint", cfg.Endpoint)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Close()
	},
	RunE: runChat,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file path (YAML, overrides $CHATTERM_CONFIG and the data directory)")
	rootCmd.PersistentFlags().StringVar(&endpointFlag, "endpoint", "", "Chat endpoint URL (overrides the configuration)")
	rootCmd.PersistentFlags().StringVar(&userIDFlag, "user-id", "", "User identifier sent with every message (overrides the configuration)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging (shorthand for --log-level=debug)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from configuration)")
	rootCmd.PersistentFlags().StringVarP(&logFile, "logfile", "l", "", "Log file path (logs are also written to stderr)")
	rootCmd.PersistentFlags().StringVar(&logComponents, "log-components", "", "Comma-separated list of components to log (e.g. 'chat,transport'). Empty means all components.")
}

// initLogging sets up the operator log.
// Priority: --log-level flag > --debug flag > configuration.
func initLogging(c *config.Config) error {
	level := c.Log.Level
	if logLevel != "" {
		level = logLevel
	} else if debug {
		level = "debug"
	}

	components := c.Log.Components
	if logComponents != "" {
		components = splitList(logComponents)
	}

	path := logFile
	if path == "" {
		dataDir, err := appdir.Dir()
		if err != nil {
			return err
		}
		path = c.LogFilePath(dataDir)
	}

	return logging.Initialize(logging.Config{
		Level:     level,
		FileLevel: c.Log.FileLevel,
		File: logging.FileConfig{
			Path:       path,
			MaxSizeMB:  c.Log.MaxSizeMB,
			MaxBackups: c.Log.MaxBackups,
			Compress:   c.Log.Compress,
		},
		Components: components,
	})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
