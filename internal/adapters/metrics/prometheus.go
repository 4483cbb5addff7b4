package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/randomtoy/jokes-go/internal/ports"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "jokes"

// Recorder implements ports.FetchObserver with Prometheus metrics:
//   - <ns>_fetch_total{outcome}: finished fetches, superseded ones as "stale"
//   - <ns>_fetch_duration_seconds: upstream latency of fetches that resolved the state
//   - <ns>_fetch_in_flight: fetches waiting on the upstream
type Recorder struct {
	fetches  *prometheus.CounterVec
	duration prometheus.Histogram
	inFlight prometheus.Gauge
}

func NewRecorder(reg prometheus.Registerer, namespace string) *Recorder {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)

	return &Recorder{
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Total number of joke fetches by outcome",
		}, []string{"outcome"}),

		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Upstream joke fetch duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetch_in_flight",
			Help:      "Number of joke fetches waiting on the upstream",
		}),
	}
}

func (r *Recorder) FetchStarted() {
	r.inFlight.Inc()
}

func (r *Recorder) FetchFinished(outcome string, elapsed time.Duration) {
	r.inFlight.Dec()
	r.fetches.WithLabelValues(outcome).Inc()
	if outcome != ports.OutcomeStale {
		r.duration.Observe(elapsed.Seconds())
	}
}
