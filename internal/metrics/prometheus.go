package metrics

import (
	"time"

	"github.com/nguyentantai21042004/recap-flow/pkg/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recap_jobs_processed_total",
		Help: "Total number of pipeline jobs, by terminal status",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recap_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	SegmentsTranscribedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recap_segments_transcribed_total",
		Help: "Total number of audio segments transcribed across all jobs",
	})

	ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recap_active_jobs",
		Help: "Number of pipeline jobs currently running",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recap_retry_total",
		Help: "Total number of rate-limit retries, by client and kind",
	}, []string{"client", "kind"})

	CleanupFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recap_cleanup_failures_total",
		Help: "Total number of artifact removals that failed",
	})
)

// ObserveRetry returns a retry.Policy OnRetry hook that counts retries for
// the named client.
func ObserveRetry(client string) func(retry.State, time.Duration) {
	return func(st retry.State, _ time.Duration) {
		kind := "backoff"
		if st.Grace {
			kind = "grace"
		}
		RetryTotal.WithLabelValues(client, kind).Inc()
	}
}

// ObserveStage records the time elapsed since start for stage.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
