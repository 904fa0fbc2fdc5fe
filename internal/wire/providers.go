package wire

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/wire"
	"github.com/sevigo/goframe/llms/gemini"
	"github.com/sevigo/goframe/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/sevigo/review-action/internal/app"
	"github.com/sevigo/review-action/internal/config"
	"github.com/sevigo/review-action/internal/core"
	"github.com/sevigo/review-action/internal/github"
	"github.com/sevigo/review-action/internal/jobs"
	"github.com/sevigo/review-action/internal/language"
	"github.com/sevigo/review-action/internal/llm"
	"github.com/sevigo/review-action/internal/logger"
	"github.com/sevigo/review-action/internal/metrics"
	"github.com/sevigo/review-action/internal/output"
	"github.com/sevigo/review-action/internal/retry"
)

var AppSet = wire.NewSet(
	app.NewApp,
	provideLogger,
	metrics.New,
	provideGitHubClient,
	provideGatewayOptions,
	github.NewPullRequestGateway,
	providePrinter,
	providePullRequestService,
	provideStatusReporter,
	llm.NewPromptManager,
	provideBackend,
	provideDetector,
	provideReviewerOptions,
	llm.NewReviewService,
	wire.Bind(new(core.CodeReviewer), new(*llm.ReviewService)),
	jobs.NewReviewJob,
	wire.Bind(new(core.Job), new(*jobs.ReviewJob)),
)

func provideLogger(cfg *config.Config) *slog.Logger {
	return logger.NewLogger(cfg.Logger, nil)
}

func provideGitHubClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) github.Client {
	return github.NewPATClient(ctx, cfg.GitHub.Token, logger)
}

func retryPolicy(attempts int, baseDelay time.Duration) retry.Policy {
	p := retry.Default().WithMaxAttempts(attempts)
	if baseDelay > 0 {
		p.BaseDelay = baseDelay
	}
	return p
}

func provideGatewayOptions(cfg *config.Config) github.GatewayOptions {
	return github.GatewayOptions{
		Retry:        retryPolicy(cfg.Retry.Attempts, cfg.Retry.BaseDelay),
		CommentRetry: retryPolicy(cfg.Retry.CommentAttempts, cfg.Retry.BaseDelay),
	}
}

func providePrinter(cfg *config.Config) (*output.Printer, error) {
	return output.NewPrinter(os.Stdout, cfg.Review.OutputStyle, 0)
}

// providePullRequestService hides the gateway's publishing calls behind the
// printer on dry runs.
func providePullRequestService(cfg *config.Config, gw *github.PullRequestGateway, printer *output.Printer) core.PullRequestService {
	if cfg.Review.DryRun {
		return output.NewDryRunService(gw, printer)
	}
	return gw
}

// provideStatusReporter returns nil when no status should be reported.
func provideStatusReporter(cfg *config.Config, client github.Client, printer *output.Printer) core.StatusReporter {
	switch {
	case cfg.Review.DryRun:
		return output.NewStatusPrinter(printer)
	case cfg.Review.ReportStatus:
		return github.NewStatusUpdater(client, retryPolicy(cfg.Retry.Attempts, cfg.Retry.BaseDelay))
	default:
		return nil
	}
}

func provideDetector() *language.Detector {
	return language.New(nil)
}

func provideReviewerOptions(cfg *config.Config) llm.ReviewerOptions {
	return llm.ReviewerOptions{
		Retry:            retryPolicy(cfg.Retry.Attempts, cfg.Retry.BaseDelay),
		ChunkConcurrency: cfg.Review.ChunkConcurrency,
	}
}

// provideBackend connects to the configured provider. OpenAI goes through a
// langchaingo chain; Gemini and Ollama through goframe models.
func provideBackend(ctx context.Context, cfg *config.Config, pm *llm.PromptManager, logger *slog.Logger) (llm.Backend, error) {
	ai := cfg.AI
	logger.Info("connecting to LLM", "provider", ai.Provider, "model", ai.ModelName)

	switch ai.Provider {
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(ai.OpenAIAPIKey),
			openai.WithModel(ai.ModelName),
		}
		if ai.OpenAIURL != "" {
			opts = append(opts, openai.WithBaseURL(ai.OpenAIURL))
		}
		model, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		return llm.NewChainBackend(ai.Provider, model, pm, ai.Temperature)

	case config.ProviderGemini:
		model, err := gemini.New(ctx,
			gemini.WithModel(ai.ModelName),
			gemini.WithAPIKey(ai.GeminiAPIKey),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		return llm.NewModelBackend(ai.Provider, model, pm), nil

	case config.ProviderOllama:
		model, err := ollama.New(
			ollama.WithServerURL(ai.OllamaHost),
			ollama.WithHTTPClient(newOllamaHTTPClient()),
			ollama.WithModel(ai.ModelName),
			ollama.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return llm.NewModelBackend(ai.Provider, model, pm), nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", ai.Provider)
	}
}

// newOllamaHTTPClient allows for slow local generation.
func newOllamaHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			MaxConnsPerHost:     4,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Timeout: 10 * time.Minute,
	}
}
