// Package config loads the process configuration from flags, GitHub Actions
// inputs and the runner environment, and parses the repository level config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/review-action/internal/logger"
)

const (
	ReviewModeFile   = "file"
	ReviewModeChunks = "chunks"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// GitHubConfig holds the platform credential and the runner's event context.
type GitHubConfig struct {
	Token      string
	EventName  string
	EventPath  string
	Repository string
}

// AIConfig selects and configures the text generation backend.
type AIConfig struct {
	Provider     string
	OpenAIAPIKey string
	OpenAIURL    string
	GeminiAPIKey string
	OllamaHost   string
	ModelName    string
	Temperature  float64
}

// ReviewConfig controls what is reviewed and how results are published.
type ReviewConfig struct {
	ExcludeFiles     []string
	Mode             string
	MaxWorkers       int
	ChunkConcurrency int
	RepoConfigPath   string
	ReportStatus     bool
	DryRun           bool
	// OutputStyle is the glamour style used to print dry run results.
	OutputStyle      string
}

// RetryConfig bounds the retry policies.
type RetryConfig struct {
	Attempts        int
	CommentAttempts int
	BaseDelay       time.Duration
}

// MetricsConfig configures the optional Pushgateway export.
type MetricsConfig struct {
	PushgatewayURL string
	Job            string
}

// Config holds the application's configuration values.
type Config struct {
	GitHub  GitHubConfig
	AI      AIConfig
	Review  ReviewConfig
	Retry   RetryConfig
	Metrics MetricsConfig
	Logger  logger.Config
}

// SetDefaults registers the default value of every option on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("llm_provider", ProviderOpenAI)
	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("model_name", "gpt-4o-mini")
	v.SetDefault("model_temperature", 0.0)
	v.SetDefault("exclude_files", "")
	v.SetDefault("review_mode", ReviewModeFile)
	v.SetDefault("max_workers", 1)
	v.SetDefault("chunk_concurrency", 1)
	v.SetDefault("retry_attempts", 3)
	v.SetDefault("comment_retry_attempts", 5)
	v.SetDefault("retry_base_delay", time.Second)
	v.SetDefault("repo_config_path", ".github/review-action.yml")
	v.SetDefault("report_status", false)
	v.SetDefault("dry_run", false)
	v.SetDefault("output_style", "auto")
	v.SetDefault("metrics_job", "review_action")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("log_output", "stdout")
}

// BindEnvironment makes v read GitHub Actions inputs (INPUT_<NAME>) and the
// variables the runner sets for every job.
func BindEnvironment(v *viper.Viper) error {
	v.SetEnvPrefix("INPUT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	bindings := map[string][]string{
		"github_token":   {"INPUT_GITHUB_TOKEN", "GITHUB_TOKEN"},
		"openai_api_key": {"INPUT_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"gemini_api_key": {"INPUT_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"event_name":     {"GITHUB_EVENT_NAME"},
		"event_path":     {"GITHUB_EVENT_PATH"},
		"repository":     {"GITHUB_REPOSITORY"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// LoadConfig reads configuration from the global viper instance, which the
// command line wires to flags, the environment and an optional .env file.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(viper.GetViper())
}

// LoadConfigFrom builds and validates a Config from v.
func LoadConfigFrom(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		GitHub: GitHubConfig{
			Token:      v.GetString("github_token"),
			EventName:  v.GetString("event_name"),
			EventPath:  v.GetString("event_path"),
			Repository: v.GetString("repository"),
		},
		AI: AIConfig{
			Provider:     strings.ToLower(strings.TrimSpace(v.GetString("llm_provider"))),
			OpenAIAPIKey: v.GetString("openai_api_key"),
			OpenAIURL:    v.GetString("openai_base_url"),
			GeminiAPIKey: v.GetString("gemini_api_key"),
			OllamaHost:   v.GetString("ollama_host"),
			ModelName:    v.GetString("model_name"),
			Temperature:  v.GetFloat64("model_temperature"),
		},
		Review: ReviewConfig{
			ExcludeFiles:     ParseExcludePatterns(v.GetString("exclude_files")),
			Mode:             strings.ToLower(strings.TrimSpace(v.GetString("review_mode"))),
			MaxWorkers:       v.GetInt("max_workers"),
			ChunkConcurrency: v.GetInt("chunk_concurrency"),
			RepoConfigPath:   v.GetString("repo_config_path"),
			ReportStatus:     v.GetBool("report_status"),
			DryRun:           v.GetBool("dry_run"),
			OutputStyle:      v.GetString("output_style"),
		},
		Retry: RetryConfig{
			Attempts:        v.GetInt("retry_attempts"),
			CommentAttempts: v.GetInt("comment_retry_attempts"),
			BaseDelay:       v.GetDuration("retry_base_delay"),
		},
		Metrics: MetricsConfig{
			PushgatewayURL: v.GetString("pushgateway_url"),
			Job:            v.GetString("metrics_job"),
		},
		Logger: logger.Config{
			Level:      v.GetString("log_level"),
			Format:     v.GetString("log_format"),
			Output:     v.GetString("log_output"),
			MaxSizeMB:  v.GetInt("log_max_size_mb"),
			MaxBackups: v.GetInt("log_max_backups"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseExcludePatterns splits the comma-separated exclude_files input.
// Whitespace around patterns and empty entries are dropped.
func ParseExcludePatterns(raw string) []string {
	patterns := []string{}
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// Validate checks the options that would otherwise fail late in a run.
func (c *Config) Validate() error {
	var errs []error

	if c.GitHub.Token == "" {
		errs = append(errs, errors.New("github_token must be set"))
	}

	switch c.AI.Provider {
	case ProviderOpenAI:
		if c.AI.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("openai_api_key must be set for the openai provider"))
		}
	case ProviderGemini:
		if c.AI.GeminiAPIKey == "" {
			errs = append(errs, errors.New("gemini_api_key must be set for the gemini provider"))
		}
	case ProviderOllama:
		if c.AI.OllamaHost == "" {
			errs = append(errs, errors.New("ollama_host must be set for the ollama provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported llm_provider %q (expected openai, gemini or ollama)", c.AI.Provider))
	}
	if c.AI.ModelName == "" {
		errs = append(errs, errors.New("model_name must be set"))
	}

	if c.Review.Mode != ReviewModeFile && c.Review.Mode != ReviewModeChunks {
		errs = append(errs, fmt.Errorf("unsupported review_mode %q (expected file or chunks)", c.Review.Mode))
	}
	if c.Review.MaxWorkers < 1 {
		errs = append(errs, fmt.Errorf("max_workers must be at least 1, got %d", c.Review.MaxWorkers))
	}
	if c.Retry.Attempts < 1 {
		errs = append(errs, fmt.Errorf("retry_attempts must be at least 1, got %d", c.Retry.Attempts))
	}
	if c.Retry.CommentAttempts < 1 {
		errs = append(errs, fmt.Errorf("comment_retry_attempts must be at least 1, got %d", c.Retry.CommentAttempts))
	}
	if c.Retry.BaseDelay < 0 {
		errs = append(errs, fmt.Errorf("retry_base_delay must not be negative, got %s", c.Retry.BaseDelay))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
