// Package observability holds process-wide watermark gauges.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	batchPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cms",
		Subsystem: "activity_log",
		Name:      "last_batch_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity batch written to Postgres.",
	})
	lastIdentityGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cms",
		Subsystem: "activity_log",
		Name:      "last_activity_id",
		Help:      "Identity assigned to the last activity of the most recent batch.",
	})
)

func init() {
	prometheus.MustRegister(batchPersistGauge, lastIdentityGauge)
}

// RecordBatchPersisted updates the persistence watermark gauges.
func RecordBatchPersisted(ts time.Time, lastID int64) {
	if ts.IsZero() {
		return
	}
	batchPersistGauge.Set(float64(ts.Unix()))
	if lastID != 0 {
		lastIdentityGauge.Set(float64(lastID))
	}
}
