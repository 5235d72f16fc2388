package queue

import "github.com/prometheus/client_golang/prometheus"

var enqueuedCounter = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "cms",
	Subsystem: "activity_queue",
	Name:      "enqueued_total",
	Help:      "Number of activities accepted into the in-memory queue.",
})

func init() {
	prometheus.MustRegister(enqueuedCounter)
}
