package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"traind/internal/bus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "traind",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "traind",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)

	batchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "traind",
		Subsystem: "training",
		Name:      "batches_total",
		Help:      "Optimizer steps taken",
	})

	epochsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "traind",
		Subsystem: "training",
		Name:      "epochs_total",
		Help:      "Training epochs completed",
	})

	checkpointsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "traind",
		Subsystem: "training",
		Name:      "checkpoints_total",
		Help:      "Successful checkpoint writes",
	})

	lossCurrent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "traind",
			Subsystem: "training",
			Name:      "loss",
			Help:      "Most recent per-batch loss values",
		},
		[]string{"loss"},
	)

	overwatchCurrent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "traind",
			Subsystem: "training",
			Name:      "overwatch",
			Help:      "Most recent overwatch metric value per epoch",
		},
		[]string{"metric"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration,
		batchesTotal, epochsTotal, checkpointsTotal, lossCurrent, overwatchCurrent)
}

func metricsHandler() http.Handler { return promhttp.Handler() }

// ObserveBus feeds the training collectors from the lifecycle signals.
func ObserveBus(b *bus.Bus) {
	bus.On(b, func(e bus.BatchEnd) {
		batchesTotal.Inc()
		lossCurrent.WithLabelValues("total_loss").Set(e.TotalLoss)
		for name, v := range e.Losses {
			lossCurrent.WithLabelValues(name).Set(v)
		}
	})
	bus.On(b, func(bus.EpochEnd) { epochsTotal.Inc() })
	bus.On(b, func(bus.ModelSaved) { checkpointsTotal.Inc() })
	bus.On(b, func(e bus.OverwatchComputed) {
		overwatchCurrent.WithLabelValues(e.Metric.Name).Set(e.Metric.Value)
	})
}

// statusRecorder wraps http.ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware instruments requests for Prometheus
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := routePatternOrPath(r)
		sr := &statusRecorder{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(sr, r)
		statusLabel := itoa(sr.status)
		httpRequestsTotal.WithLabelValues(path, r.Method, statusLabel).Inc()
		httpRequestDuration.WithLabelValues(path, r.Method, statusLabel).Observe(time.Since(start).Seconds())
	})
}

// routePatternOrPath returns the chi route pattern if available, otherwise
// falls back to URL path. This avoids high-cardinality label values.
func routePatternOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// fast integer to ascii for small set of status codes
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [4]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
