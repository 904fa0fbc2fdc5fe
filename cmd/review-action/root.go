package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sevigo/review-action/internal/app"
	"github.com/sevigo/review-action/internal/config"
	"github.com/sevigo/review-action/internal/wire"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "review-action",
	Short: "review-action reviews the changed files of a GitHub pull request with an LLM.",
	Long: `review-action lists the changed files of a pull request, asks a language model
to review each patch and posts the results as review comments.

Without a subcommand it runs as a GitHub Actions step, reading the triggering
event from GITHUB_EVENT_NAME and GITHUB_EVENT_PATH.`,
	SilenceUsage: true,
	RunE:         runAction,
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before reading the environment")
	flags.StringP("github-token", "t", "", "GitHub token used to read the pull request and post comments")
	flags.String("llm-provider", "", "LLM provider: openai, gemini or ollama")
	flags.String("model-name", "", "Model used to generate reviews")
	flags.String("review-mode", "", "Review granularity: file or chunks")
	flags.String("exclude-files", "", "Comma-separated glob patterns of files to skip")
	flags.Int("max-workers", 0, "Files reviewed in parallel")
	flags.Bool("dry-run", false, "Print reviews instead of posting them")
	flags.String("log-level", "", "Log level: debug, info, warn or error")

	bindings := map[string]string{
		"github_token":  "github-token",
		"llm_provider":  "llm-provider",
		"model_name":    "model-name",
		"review_mode":   "review-mode",
		"exclude_files": "exclude-files",
		"max_workers":   "max-workers",
		"dry_run":       "dry-run",
		"log_level":     "log-level",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			slog.Error("Error binding flag", "flag", flag, "error", err)
			os.Exit(1)
		}
	}
}

// initConfig loads the dotenv file, if any, and registers defaults and
// environment bindings on the global viper instance.
func initConfig() {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load env file", "path", envFile, "error", err)
	}
	config.SetDefaults(viper.GetViper())
	if err := config.BindEnvironment(viper.GetViper()); err != nil {
		slog.Error("Error binding environment", "error", err)
		os.Exit(1)
	}
}

// newApp loads the configuration and wires the application. The returned
// context is cancelled on SIGINT or SIGTERM.
func newApp() (context.Context, context.CancelFunc, *app.App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a, err := wire.InitializeApp(ctx, cfg)
	if err != nil {
		stop()
		return nil, nil, nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return ctx, stop, a, nil
}

func runAction(_ *cobra.Command, _ []string) error {
	ctx, stop, a, err := newApp()
	if err != nil {
		return err
	}
	defer stop()

	_, err = a.Run(ctx)
	return err
}
