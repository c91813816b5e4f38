// Command execgate exposes shell command execution over HTTP and MCP.
package main

import (
	"fmt"
	"os"

	"github.com/deixis/execgate"
	"github.com/deixis/execgate/internal/config"
	"github.com/deixis/execgate/internal/observability"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger zerolog.Logger

	flagConfigFilePath string // value of --config flag
	flagVerbose        bool   // value of --verbose flag
)

func main() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "Config file to load - default is "+config.FileName+" in the current directory")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")

	// errors are logged below
	rootCmd.SilenceErrors = true

	rootCmd.PersistentPreRunE = initExecgate

	serveCmd.Flags().BoolVar(&flagServeMCP, "mcp", false, "also mount the MCP endpoint at /mcp")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("execgate failed")
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "execgate",
	Short:        "Run shell commands on behalf of HTTP and MCP clients",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	// no config or logger needed
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), execgate.Version)
	},
}

func initExecgate(cmd *cobra.Command, _ []string) error {
	// a usable logger even if loading fails
	logger = observability.InitLogger("execgate", config.DefaultLogLevel, config.DefaultLogFormat, os.Stderr)

	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining working directory: %w", err)
	}

	loaded, err := config.Load(dir, flagConfigFilePath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg = loaded.Config

	level := cfg.LogLevel()
	if flagVerbose {
		level = "debug"
	}
	logger = observability.InitLogger("execgate", level, cfg.LogFormat(), os.Stderr)

	if loaded.Path != "" {
		logger.Debug().Str("path", loaded.Path).Msg("config loaded")
	} else {
		logger.Debug().Msg("no config file, using defaults")
	}
	return nil
}
