package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once

	// Job lifecycle metrics
	JobsSubmitted prometheus.Counter
	JobsCompleted prometheus.Counter
	JobsFailed    *prometheus.CounterVec
	JobsActive    prometheus.Gauge
	JobDuration   prometheus.Histogram

	// Pipeline step metrics
	StepDuration *prometheus.HistogramVec
	StepFailures *prometheus.CounterVec

	// Collaborator metrics
	SynthesisRequests  *prometheus.CounterVec
	TranscriptionBytes prometheus.Counter
	ScoringRetries     prometheus.Counter

	// Result metrics
	AccuracyScores prometheus.Histogram
)

// Init initializes all metrics and registers them with Prometheus
func Init(logger *logrus.Logger) {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()

		JobsSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voiceqa_jobs_submitted_total",
			Help: "Total number of test jobs submitted",
		})

		JobsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voiceqa_jobs_completed_total",
			Help: "Total number of test jobs that completed successfully",
		})

		JobsFailed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voiceqa_jobs_failed_total",
				Help: "Total number of test jobs that reached the failed state",
			},
			[]string{"step"},
		)

		JobsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "voiceqa_jobs_active",
			Help: "Number of test jobs currently running",
		})

		JobDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "voiceqa_job_duration_seconds",
			Help:    "End-to-end duration of a test job",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		})

		StepDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "voiceqa_step_duration_seconds",
				Help:    "Duration of individual pipeline steps",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"step"},
		)

		StepFailures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voiceqa_step_failures_total",
				Help: "Total number of pipeline step failures",
			},
			[]string{"step"},
		)

		SynthesisRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voiceqa_synthesis_requests_total",
				Help: "Total number of per-line speech synthesis requests",
			},
			[]string{"provider"},
		)

		TranscriptionBytes = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voiceqa_transcription_bytes_total",
			Help: "Total bytes of audio submitted for transcription",
		})

		ScoringRetries = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voiceqa_scoring_retries_total",
			Help: "Total number of retried scoring calls",
		})

		AccuracyScores = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "voiceqa_accuracy_score",
			Help:    "Distribution of final accuracy scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		})

		registry.MustRegister(
			JobsSubmitted,
			JobsCompleted,
			JobsFailed,
			JobsActive,
			JobDuration,
			StepDuration,
			StepFailures,
			SynthesisRequests,
			TranscriptionBytes,
			ScoringRetries,
			AccuracyScores,
		)

		logger.Info("Prometheus metrics initialized")
	})
}

// GetRegistry returns the metrics registry, or nil before Init
func GetRegistry() *prometheus.Registry {
	return registry
}

// ObserveStep records one step execution
func ObserveStep(step string, start time.Time, failed bool) {
	if registry == nil {
		return
	}
	StepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
	if failed {
		StepFailures.WithLabelValues(step).Inc()
	}
}

// JobSubmitted records one job submission
func JobSubmitted() {
	if registry == nil {
		return
	}
	JobsSubmitted.Inc()
}

// JobStarted records a job entering the running state
func JobStarted() {
	if registry == nil {
		return
	}
	JobsActive.Inc()
}

// JobCompleted records a successful terminal state
func JobCompleted(duration time.Duration, score float64) {
	if registry == nil {
		return
	}
	JobsActive.Dec()
	JobsCompleted.Inc()
	JobDuration.Observe(duration.Seconds())
	AccuracyScores.Observe(score)
}

// JobFailed records a failed terminal state caused by the given step
func JobFailed(step string, duration time.Duration) {
	if registry == nil {
		return
	}
	JobsActive.Dec()
	JobsFailed.WithLabelValues(step).Inc()
	JobDuration.Observe(duration.Seconds())
}

// SynthesisRequest records one per-line synthesis call
func SynthesisRequest(provider string) {
	if registry == nil {
		return
	}
	SynthesisRequests.WithLabelValues(provider).Inc()
}

// TranscriptionSubmitted records audio bytes sent for transcription
func TranscriptionSubmitted(bytes int64) {
	if registry == nil {
		return
	}
	TranscriptionBytes.Add(float64(bytes))
}

// ScoringRetry records one retried scoring call
func ScoringRetry() {
	if registry == nil {
		return
	}
	ScoringRetries.Inc()
}
