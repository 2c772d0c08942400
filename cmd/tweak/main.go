package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iishyfishyy/tweak/internal/config"
	"github.com/iishyfishyy/tweak/internal/ui"
)

var (
	// version is set by goreleaser at build time
	version = "dev"

	// CLI flags
	filePath     string
	chooseModel  bool
	useOpenRoute bool
	providerID   string
	instruction  string
	autoApply    bool
	debug        bool
	configPath   string
	historyLimit int
)

var (
	// errSessionFailed is returned after a failed session has already been reported.
	errSessionFailed = errors.New("session failed")

	// errCancelled is returned when the user backs out of a prompt.
	errCancelled = errors.New("cancelled")
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "tweak -f FILE",
		Short:         "Edit a file with an LLM and review the diff before it lands",
		Long:          "tweak sends a file and an instruction to an LLM provider, shows the proposed diff, and applies it only when you approve",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runEdit,
	}

	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.tweak/config.yaml)")

	rootCmd.Flags().StringVarP(&filePath, "file", "f", "", "File to edit")
	rootCmd.Flags().BoolVarP(&chooseModel, "model", "m", false, "Choose the model interactively")
	rootCmd.Flags().BoolVarP(&useOpenRoute, "openrouter", "o", false, "Use OpenRouter (same as -p openrouter)")
	rootCmd.Flags().StringVarP(&providerID, "provider", "p", "", "Provider id (default from config)")
	rootCmd.Flags().StringVarP(&instruction, "instruction", "i", "", "Instruction for the model (prompted when empty)")
	rootCmd.Flags().BoolVarP(&autoApply, "yes", "y", false, "Apply without asking (the diff is still printed)")
	_ = rootCmd.MarkFlagRequired("file")
	rootCmd.MarkFlagsMutuallyExclusive("openrouter", "provider")

	configureCmd := &cobra.Command{
		Use:   "configure",
		Short: "Store provider API keys and pick the default provider",
		Args:  cobra.NoArgs,
		RunE:  runConfigure,
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "List the models of every configured provider",
		Args:  cobra.NoArgs,
		RunE:  runModels,
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent edit sessions",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of sessions to show")

	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(historyCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	switch {
	case err == nil, errors.Is(err, errSessionFailed):
	case errors.Is(err, errCancelled):
		ui.ShowInfo("Cancelled.")
	default:
		ui.ShowError(err.Error())
	}
	if code := exitCode(err); code != 0 {
		stop()
		os.Exit(code)
	}
}

// exitCode is 0 for success and for a cancellation the user chose.
func exitCode(err error) int {
	if err == nil || errors.Is(err, errCancelled) {
		return 0
	}
	return 1
}

// setup installs the logger on ctx and loads configuration with resolved credentials.
func setup(cmd *cobra.Command) (context.Context, *config.Config, *config.Credentials, error) {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(level).
		With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	path := configPath
	if path == "" {
		var err error
		if path, err = config.GetConfigPath(); err != nil {
			return nil, nil, nil, err
		}
	}
	logger.Debug().Str("path", path).Msg("loading config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, nil, nil, err
	}
	creds, err := config.NewCredentials(dir, ".env")
	if err != nil {
		return nil, nil, nil, err
	}
	if err := creds.Resolve(cfg); err != nil {
		return nil, nil, nil, err
	}

	return ctx, cfg, creds, nil
}

// resolvedConfigPath returns the file configure writes to.
func resolvedConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}
