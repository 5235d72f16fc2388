package publish

import "github.com/prometheus/client_golang/prometheus"

var publishedCounter = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "cms",
	Subsystem: "activity_publisher",
	Name:      "events_published_total",
	Help:      "Number of activity.recorded events written to Kafka.",
})

func init() {
	prometheus.MustRegister(publishedCounter)
}
