// Package app ties the configured services together and runs a review for
// either the workflow event of the current job or a pull request URL.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sevigo/review-action/internal/config"
	"github.com/sevigo/review-action/internal/core"
	"github.com/sevigo/review-action/internal/gitutil"
	"github.com/sevigo/review-action/internal/metrics"
)

// pushTimeout bounds the metrics export so it cannot hold up the job.
const pushTimeout = 10 * time.Second

// App holds the main application components.
type App struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	Job     core.Job
	PRs     core.PullRequestService
	Metrics *metrics.Metrics
}

// NewApp creates the application. m may be nil.
func NewApp(cfg *config.Config, logger *slog.Logger, job core.Job, prs core.PullRequestService, m *metrics.Metrics) *App {
	return &App{Cfg: cfg, Logger: logger, Job: job, PRs: prs, Metrics: m}
}

// Run reviews the pull request described by the runner's event payload.
func (a *App) Run(ctx context.Context) (*core.RunSummary, error) {
	event, err := a.eventFromEnvironment()
	if err != nil {
		return nil, err
	}
	return a.run(ctx, event)
}

// Review reviews the pull request at prURL at its current head commit.
func (a *App) Review(ctx context.Context, prURL string) (*core.RunSummary, error) {
	owner, repo, number, err := gitutil.ParsePullRequestURL(prURL)
	if err != nil {
		return nil, err
	}
	event, err := a.PRs.GetPullRequestEvent(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pull request %s/%s#%d: %w", owner, repo, number, err)
	}
	return a.run(ctx, event)
}

func (a *App) run(ctx context.Context, event *core.PullRequestEvent) (*core.RunSummary, error) {
	summary, err := a.Job.Run(ctx, event)
	a.pushMetrics(event)
	return summary, err
}

// eventFromEnvironment builds the event from GITHUB_EVENT_NAME,
// GITHUB_EVENT_PATH and GITHUB_REPOSITORY. The payload is only read for pull
// request events; anything else is handed on as is and rejected by the job.
func (a *App) eventFromEnvironment() (*core.PullRequestEvent, error) {
	gh := a.Cfg.GitHub
	owner, repo, err := gitutil.ParseRepository(gh.Repository)
	if err != nil {
		a.Logger.Debug("Repository not set in the environment", "error", err)
	}

	if gh.EventName != core.PullRequestEventName {
		return core.EventFromPayload(gh.EventName, nil, owner, repo)
	}
	if gh.EventPath == "" {
		return nil, fmt.Errorf("GITHUB_EVENT_PATH is not set")
	}
	payload, err := os.ReadFile(gh.EventPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read event payload: %w", err)
	}
	return core.EventFromPayload(gh.EventName, payload, owner, repo)
}

func (a *App) pushMetrics(event *core.PullRequestEvent) {
	url := a.Cfg.Metrics.PushgatewayURL
	if url == "" || event == nil {
		return
	}
	// The run context may already be cancelled; the export still goes out.
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	grouping := map[string]string{"repository": event.RepoFullName()}
	if err := a.Metrics.Push(ctx, url, a.Cfg.Metrics.Job, grouping); err != nil {
		a.Logger.Warn("Failed to push metrics", "error", err)
		return
	}
	a.Logger.Debug("Pushed metrics", "url", url, "job", a.Cfg.Metrics.Job)
}
