package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AngelCh415/bidopt/internal/models"
)

// Collector holds the Prometheus instruments for the optimizer.
type Collector struct {
	Runs     *prometheus.CounterVec
	Rows     prometheus.Counter
	Segments *prometheus.CounterVec
	Actions  *prometheus.CounterVec
	Duration prometheus.Histogram
}

func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bidopt_runs_total",
			Help: "Optimization runs by outcome.",
		}, []string{"status"}),
		Rows: f.NewCounter(prometheus.CounterOpts{
			Name: "bidopt_rows_processed_total",
			Help: "Records that survived merge and null filtering.",
		}),
		Segments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bidopt_segments_total",
			Help: "Classified records by segment.",
		}, []string{"segment"}),
		Actions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bidopt_actions_total",
			Help: "Recommended actions by label.",
		}, []string{"action"}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bidopt_run_duration_seconds",
			Help:    "Wall time of one optimization run.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveRun records the per-row tallies of a completed run.
func (c *Collector) ObserveRun(s *models.RunSummary) {
	c.Rows.Add(float64(s.TotalRows))
	for seg, n := range s.SegmentBreakdown {
		c.Segments.WithLabelValues(seg).Add(float64(n))
	}
	for action, n := range s.ActionBreakdown {
		c.Actions.WithLabelValues(action).Add(float64(n))
	}
}
