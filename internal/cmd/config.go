package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	embeddedconfig "github.com/inercia/chatterm/config"
	"github.com/inercia/chatterm/internal/appdir"
	"github.com/inercia/chatterm/internal/fileutil"
)

var (
	configOutputPath string
	configForce      bool
)

// configCmd represents the config parent command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage chatterm configuration",
	Long: `Manage chatterm configuration files.

Use the subcommands to create or inspect the configuration.`,
}

// configCreateCmd represents the config create subcommand
var configCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a default configuration file",
	Long: `Create a default configuration file in the chatterm data directory.

This command writes the embedded default configuration (config.default.yaml).
After creating the file, review and customize it for your environment.

Examples:
  chatterm config create                    # Create <data dir>/config.yaml
  chatterm config create --output /path/to  # Create /path/to/config.yaml
  chatterm config create --force            # Overwrite existing file`,
	Args: cobra.NoArgs,
	RunE: runConfigCreate,
}

// configShowCmd represents the config show subcommand
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration chatterm would use, after applying the
configuration file and command line flags, and tell where it was loaded from.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCreateCmd)
	configCmd.AddCommand(configShowCmd)

	configCreateCmd.Flags().StringVarP(&configOutputPath, "output", "o", "",
		"Directory to write the config file (default: the chatterm data directory)")
	configCreateCmd.Flags().BoolVarP(&configForce, "force", "f", false,
		"Overwrite existing configuration file without prompting")
}

func runConfigCreate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	// Determine output path
	var configPath string
	if configOutputPath != "" {
		configPath = filepath.Join(configOutputPath, appdir.ConfigFileName)
	} else {
		if err := appdir.EnsureDir(); err != nil {
			return fmt.Errorf("failed to create chatterm directory: %w", err)
		}
		var err error
		configPath, err = appdir.ConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil && !configForce {
		fmt.Fprintf(out, "⚠️  Configuration file already exists: %s\n", configPath)
		fmt.Fprintln(out, "Use --force to overwrite the existing file.")
		return nil
	}

	// Write the embedded default config
	if err := fileutil.WriteFileAtomic(configPath, embeddedconfig.DefaultConfigYAML, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Fprintf(out, "✅ Configuration file created: %s\n", configPath)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Set 'endpoint' to the URL of your chat service")
	fmt.Fprintln(out, "  2. Set 'user_id', or leave it empty for a random id")
	fmt.Fprintln(out, "  3. Run 'chatterm' to start chatting")

	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	data, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}

	source := configResult.Source.String()
	if configResult.SourcePath != "" {
		source = fmt.Sprintf("%s (%s)", source, configResult.SourcePath)
	}
	fmt.Fprintf(out, "# source: %s\n", source)
	_, err = out.Write(data)
	return err
}
