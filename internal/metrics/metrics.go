// Package metrics declares the Prometheus collectors for coloring runs and
// coordination rounds.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/mundrapranay/silhouette-coloring/algorithms/coloring"
)

var (
	coloringRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "silhouette_coloring_runs_total",
		Help: "Completed coloring runs by algorithm",
	}, []string{"algorithm"})

	coloringConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "silhouette_coloring_conflicts_total",
		Help: "Vertices flagged by the conflict detector",
	}, []string{"algorithm"})

	coloringColors = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "silhouette_coloring_colors",
		Help: "Colors used by the most recent run",
	}, []string{"algorithm"})

	coloringPhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "silhouette_coloring_phase_duration_seconds",
		Help:    "Duration of each coloring phase",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 12), // 10µs to ~40s
	}, []string{"algorithm", "phase"})

	roundsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "silhouette_rounds_completed_total",
		Help: "Coordination rounds whose expected workers all published",
	})

	valuesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "silhouette_values_published_total",
		Help: "Key-value pairs accepted by PublishValues",
	})
)

// ObserveColoring records a finished coloring run.
func ObserveColoring(algorithm string, res *coloring.Result) {
	if res == nil {
		return
	}
	coloringRuns.WithLabelValues(algorithm).Inc()
	coloringConflicts.WithLabelValues(algorithm).Add(float64(len(res.Conflicts)))
	coloringColors.WithLabelValues(algorithm).Set(float64(res.ColorCount))

	phases := map[string]float64{
		"local":   res.Timings.Local.Seconds(),
		"gather":  res.Timings.Gather.Seconds(),
		"detect":  res.Timings.Detect.Seconds(),
		"resolve": res.Timings.Resolve.Seconds(),
	}
	for phase, secs := range phases {
		coloringPhaseDuration.WithLabelValues(algorithm, phase).Observe(secs)
	}
}

// RoundCompleted counts a completed coordination round.
func RoundCompleted() { roundsCompleted.Inc() }

// ValuesPublished counts n accepted key-value pairs.
func ValuesPublished(n int) { valuesPublished.Add(float64(n)) }

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler { return promhttp.Handler() }

// Push sends the default registry to a Prometheus Pushgateway, replacing
// the metrics previously pushed under job and grouping. Short-lived
// processes call it before exiting.
func Push(ctx context.Context, gatewayURL, job string, grouping map[string]string) error {
	p := push.New(gatewayURL, job).Gatherer(prometheus.DefaultGatherer)
	for name, value := range grouping {
		p = p.Grouping(name, value)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
