package poller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricNamePollsTotal    = "unet_poller_polls_total"
	MetricNamePollDuration  = "unet_poller_poll_duration_seconds"
	MetricNameQueueDepth    = "unet_poller_queue_depth"
	MetricNameBackoffActive = "unet_poller_backoff_active"

	MetricLabelOutcome = "outcome"
)

var (
	MetricPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNamePollsTotal,
			Help: "Number of device poll attempts, by outcome",
		},
		[]string{MetricLabelOutcome},
	)

	MetricPollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    MetricNamePollDuration,
			Help:    "Time spent executing one device poll, in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	MetricQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameQueueDepth,
			Help: "Number of polling tasks currently pending in the scheduler's priority queue",
		},
	)

	MetricBackoffActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameBackoffActive,
			Help: "Number of nodes currently in backoff after consecutive poll failures",
		},
	)
)
