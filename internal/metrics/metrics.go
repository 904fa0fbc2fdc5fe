// Package metrics holds the Prometheus collectors of a review run. A run is a
// short-lived process, so the collectors live in their own registry and are
// pushed to a Pushgateway when the run ends instead of being scraped.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics groups the collectors of one run. All methods are safe to call on
// a nil *Metrics, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// FilesTotal counts files by outcome: reviewed, skipped, failed, excluded.
	FilesTotal *prometheus.CounterVec
	// RetriesTotal counts retried attempts, labeled by operation.
	RetriesTotal *prometheus.CounterVec
	// CommentsTotal counts posted comments, labeled by status: success, error.
	CommentsTotal *prometheus.CounterVec
	// BackendCalls counts text generation calls, labeled by provider and status.
	BackendCalls *prometheus.CounterVec
	// RunDuration measures a whole run, labeled by result: success, error.
	RunDuration *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FilesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "review_action_files_total",
			Help: "The total number of pull request files seen, by outcome",
		}, []string{"outcome"}),
		RetriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "review_action_retries_total",
			Help: "The total number of retried attempts, by operation",
		}, []string{"operation"}),
		CommentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "review_action_comments_total",
			Help: "The total number of review comments posted",
		}, []string{"status"}),
		BackendCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "review_action_backend_calls_total",
			Help: "The total number of text generation calls",
		}, []string{"provider", "status"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "review_action_run_duration_seconds",
			Help:    "Time taken to review a pull request",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"result"}),
	}
}

// Registry exposes the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) File(outcome string) {
	if m == nil {
		return
	}
	m.FilesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Retry(operation string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(operation).Inc()
}

func (m *Metrics) Comment(err error) {
	if m == nil {
		return
	}
	m.CommentsTotal.WithLabelValues(status(err)).Inc()
}

func (m *Metrics) BackendCall(provider string, err error) {
	if m == nil {
		return
	}
	m.BackendCalls.WithLabelValues(provider, status(err)).Inc()
}

func (m *Metrics) ObserveRun(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.RunDuration.WithLabelValues(result).Observe(d.Seconds())
}

// Push sends every collector to the Pushgateway at url under job. Grouping
// labels distinguish runs of different repositories.
func (m *Metrics) Push(ctx context.Context, url, job string, grouping map[string]string) error {
	if m == nil || url == "" {
		return nil
	}
	pusher := push.New(url, job).Gatherer(m.registry)
	for name, value := range grouping {
		pusher = pusher.Grouping(name, value)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
