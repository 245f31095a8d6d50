package cmd

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/concierge/internal/config"
	"github.com/teemow/concierge/internal/logging"
)

// rootCmd represents the base command for the concierge application
var rootCmd = &cobra.Command{
	Use:   "concierge",
	Short: "Calendar and email assistant with human approval before sending",
	Long: `concierge schedules meetings and drafts emails from natural-language
requests. Every email is shown to you as a draft and is only sent after
you approve it.

It can run as:
  - An interactive chat assistant backed by Gemini (default)
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

var (
	debugMode bool
	envFile   string
)

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "concierge version %s\n" .Version}}`)

	// If no subcommand is provided, start the chat
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "chat")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading configuration")

	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}

// loadConfig reads the env file and environment and validates the result.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// setupLogger installs the default logger. Logs go to w, which is stderr
// so stdout stays free for chat output and the stdio transport.
func setupLogger(format string, w io.Writer) (*slog.Logger, error) {
	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	} else if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsed, err := logging.ParseLevel(lvl)
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	logger, err := logging.NewLogger(level, format, w)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}
