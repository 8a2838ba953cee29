package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus instruments updated for every processed frame
type Metrics struct {
	frames  prometheus.Counter
	latency prometheus.Histogram
	count   prometheus.Gauge
}

// NewMetrics creates the pipeline instruments and registers them on reg.  A
// nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {

	m := &Metrics{
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crowdcount_frames_processed_total",
			Help: "Number of frames run through inference and rendering",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crowdcount_inference_latency_ms",
			Help:    "Inference latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		}),
		count: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crowdcount_estimated_count",
			Help: "Estimated people count of the last processed frame",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.frames, m.latency, m.count)
	}

	return m
}

// observe records a processed frame
func (m *Metrics) observe(latency time.Duration, count int) {
	m.frames.Inc()
	m.latency.Observe(float64(latency) / float64(time.Millisecond))
	m.count.Set(float64(count))
}
