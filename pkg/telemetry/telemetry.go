package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"campusboard/pkg/logger"
)

// Domain counters. Services increment these on committed mutations only,
// never on rejected ones.
var (
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusboard_posts_created_total",
		Help: "Posts and replies accepted by the write path.",
	})
	ReactionsToggled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusboard_reactions_toggled_total",
		Help: "Committed reaction toggles by resulting user reaction (empty = cleared).",
	}, []string{"result"})
	ReportsFiled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusboard_reports_total",
		Help: "Accepted (non-duplicate) community reports.",
	})
	PostsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusboard_posts_removed_total",
		Help: "Items removed by crossing the report threshold.",
	})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "campusboard_http_request_duration_seconds",
		Help:    "HTTP request latency by method and status class.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "class"})
)

// slowThreshold controls which requests get logged individually.
const slowThreshold = 200 * time.Millisecond

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request timing into the duration histogram and logs
// slow requests.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		d := time.Since(start)
		requestDuration.WithLabelValues(r.Method, statusClass(rec.status)).Observe(d.Seconds())
		if d >= slowThreshold {
			logger.Warn("slow_request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration_ms", d.Milliseconds())
		}
	})
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
