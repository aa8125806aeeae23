// Package metrics collects Prometheus metrics for one pipeline run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rios0rios0/autochangeset/internal/dedup"
	"github.com/rios0rios0/autochangeset/internal/domain/entities"
)

// Recorder owns a registry scoped to a single run.
type Recorder struct {
	registry   *prometheus.Registry
	facts      prometheus.Counter
	skipped    prometheus.Counter
	categories *prometheus.CounterVec
	decisions  *prometheus.CounterVec
	duplicates *prometheus.CounterVec
	merges     prometheus.Counter
	warnings   prometheus.Counter
	candidates prometheus.Gauge
	duration   prometheus.Histogram
}

// NewRecorder creates a recorder with its collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		facts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autochangeset_dependency_facts_total",
			Help: "Number of dependency facts produced by normalization.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autochangeset_skipped_records_total",
			Help: "Number of change records skipped by normalization.",
		}),
		categories: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autochangeset_categorized_dependencies_total",
			Help: "Number of categorized dependencies by primary category.",
		}, []string{"category"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autochangeset_bump_decisions_total",
			Help: "Number of bump decisions by bump type and confidence.",
		}, []string{"bump", "confidence"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autochangeset_duplicates_removed_total",
			Help: "Number of changeset candidates removed by dedup stage.",
		}, []string{"stage"}),
		merges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autochangeset_merge_operations_total",
			Help: "Number of merge operations performed.",
		}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autochangeset_validation_warnings_total",
			Help: "Number of validation warnings emitted.",
		}),
		candidates: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "autochangeset_final_changesets",
			Help: "Number of changesets left after deduplication.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "autochangeset_pipeline_duration_seconds",
			Help:    "Time taken by a pipeline run.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	r.registry.MustRegister(
		r.facts, r.skipped, r.categories, r.decisions, r.duplicates,
		r.merges, r.warnings, r.candidates, r.duration,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ObserveFacts(facts, skipped int) {
	r.facts.Add(float64(facts))
	r.skipped.Add(float64(skipped))
}

func (r *Recorder) ObserveCategorization(result entities.CategorizationResult) {
	for _, dep := range result.Dependencies {
		r.categories.WithLabelValues(string(dep.Primary)).Inc()
	}
}

func (r *Recorder) ObserveDecision(decision entities.BumpDecision) {
	r.decisions.WithLabelValues(string(decision.Bump), string(decision.Confidence)).Inc()
}

func (r *Recorder) ObserveDedup(result dedup.Result) {
	for _, duplicate := range result.Duplicates {
		r.duplicates.WithLabelValues(string(duplicate.Stage)).Inc()
	}
	r.merges.Add(float64(len(result.Merges)))
	r.warnings.Add(float64(len(result.Warnings)))
	r.candidates.Set(float64(len(result.Candidates)))
}

func (r *Recorder) ObserveDuration(elapsed time.Duration) {
	r.duration.Observe(elapsed.Seconds())
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
