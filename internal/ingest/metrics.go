package ingest

import "github.com/prometheus/client_golang/prometheus"

var (
	batchSizeHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cms",
		Subsystem: "activity_queue",
		Name:      "batch_size",
		Help:      "Number of activities drained per non-empty flush.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})

	persistedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cms",
		Subsystem: "activity_queue",
		Name:      "activities_persisted_total",
		Help:      "Number of activities written by the bulk insert.",
	})

	droppedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cms",
		Subsystem: "activity_queue",
		Name:      "activities_dropped_total",
		Help:      "Number of drained activities that were not written, by reason.",
	}, []string{"reason"})

	cycleCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cms",
		Subsystem: "activity_queue",
		Name:      "cycles_total",
		Help:      "Number of worker cycles by outcome.",
	}, []string{"outcome"})

	cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cms",
		Subsystem: "activity_queue",
		Name:      "cycle_duration_seconds",
		Help:      "Time spent draining, writing and notifying in one worker cycle.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
	})

	queueDepthGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cms",
		Subsystem: "activity_queue",
		Name:      "depth",
		Help:      "Activities waiting in the queue, sampled after each cycle.",
	})
)

func init() {
	prometheus.MustRegister(batchSizeHistogram, persistedCounter, droppedCounter, cycleCounter, cycleDuration, queueDepthGauge)
}
