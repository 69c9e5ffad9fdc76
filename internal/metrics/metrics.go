package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rafflehouse"

// Metrics holds the application's Prometheus collectors
type Metrics struct {
	Registry *prometheus.Registry

	CompetitionsCreated prometheus.Counter
	CompetitionsStatus  *prometheus.GaugeVec
	TicketsSold         prometheus.Counter
	TicketsRefunded     prometheus.Counter
	DrawsRequested      prometheus.Counter
	DrawsCompleted      *prometheus.CounterVec
	Payouts             *prometheus.CounterVec
	OperationErrors     *prometheus.CounterVec
	KeeperRuns          *prometheus.CounterVec
	JournalErrors       prometheus.Counter

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates and registers all collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		CompetitionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "competitions",
			Name:      "created_total",
			Help:      "Total number of competitions created.",
		}),
		CompetitionsStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "competitions",
			Name:      "by_status",
			Help:      "Current number of competitions in each status.",
		}, []string{"status"}),
		TicketsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tickets",
			Name:      "sold_total",
			Help:      "Total number of tickets minted.",
		}),
		TicketsRefunded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tickets",
			Name:      "refunded_total",
			Help:      "Total number of tickets burned for a refund.",
		}),
		DrawsRequested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "draws",
			Name:      "requested_total",
			Help:      "Total number of randomness requests sent.",
		}),
		DrawsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "draws",
			Name:      "completed_total",
			Help:      "Total number of draws that reached a terminal status.",
		}, []string{"status"}),
		Payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "escrow",
			Name:      "payouts_total",
			Help:      "Total number of escrow payouts by kind.",
		}, []string{"kind"}),
		OperationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "competitions",
			Name:      "operation_errors_total",
			Help:      "Total number of rejected competition operations.",
		}, []string{"operation", "kind"}),
		KeeperRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keeper",
			Name:      "executions_total",
			Help:      "Total number of keeper execute attempts by outcome.",
		}, []string{"outcome"}),
		JournalErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "write_errors_total",
			Help:      "Total number of events that could not be journaled.",
		}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "path"}),
	}

	m.Registry.MustRegister(
		m.CompetitionsCreated,
		m.CompetitionsStatus,
		m.TicketsSold,
		m.TicketsRefunded,
		m.DrawsRequested,
		m.DrawsCompleted,
		m.Payouts,
		m.OperationErrors,
		m.KeeperRuns,
		m.JournalErrors,
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// Transition moves one competition from one status gauge to another.
// An empty from only increments.
func (m *Metrics) Transition(from, to string) {
	if from != "" {
		m.CompetitionsStatus.WithLabelValues(from).Dec()
	}
	m.CompetitionsStatus.WithLabelValues(to).Inc()
}

// Handler returns an HTTP handler exposing the registered metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps next with HTTP metrics collection
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)
		m.httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the recorder
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// canonicalPath collapses identifiers so label cardinality stays bounded:
// /api/competitions/{id}/tickets/{n}/qr becomes /api/competitions/:id/tickets/:ticket/qr
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	for i := range parts {
		if i == 0 {
			continue
		}
		switch parts[i-1] {
		case "competitions":
			parts[i] = ":id"
		case "studios":
			parts[i] = ":id"
		case "accounts":
			parts[i] = ":address"
		case "tickets", "holders", "tokens", "collections":
			parts[i] = ":" + strings.TrimSuffix(parts[i-1], "s")
		}
	}
	return "/" + strings.Join(parts, "/")
}
