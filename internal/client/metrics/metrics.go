// Package metrics holds the console's Prometheus collectors. They are
// registered on a private registry exposed through Handler, so the console
// never pollutes the default registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultCanceled = "canceled"
	ResultRefused  = "refused"
)

// Registry backs every collector below.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	requestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gfsdash_requests_total",
			Help: "Outgoing requests to the master and gateway.",
		},
		[]string{"service", "path", "status"},
	)

	requestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gfsdash_request_duration_seconds",
			Help:    "Latency of outgoing requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "path"},
	)

	refreshCycles = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gfsdash_refresh_cycles_total",
			Help: "Dashboard refresh cycles by result (ok, error, stale).",
		},
		[]string{"result"},
	)

	refreshDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gfsdash_refresh_duration_seconds",
			Help:    "Duration of dashboard refresh cycles.",
			Buckets: prometheus.DefBuckets,
		},
	)

	uploadJobs = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gfsdash_upload_jobs_total",
			Help: "Upload jobs by result.",
		},
		[]string{"result", "encrypt"},
	)

	adminActions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gfsdash_admin_actions_total",
			Help: "Admin actions by action and result.",
		},
		[]string{"action", "result"},
	)

	liveClients = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "gfsdash_live_view_clients",
			Help: "Connected live view websocket clients.",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveRequest records one outgoing request. status is the HTTP code, or
// 0 when the request never got a response.
func ObserveRequest(service, path string, status int, d time.Duration) {
	code := "transport_error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	requestsTotal.WithLabelValues(service, path, code).Inc()
	requestDuration.WithLabelValues(service, path).Observe(d.Seconds())
}

func RefreshCycle(result string, d time.Duration) {
	refreshCycles.WithLabelValues(result).Inc()
	if d > 0 {
		refreshDuration.Observe(d.Seconds())
	}
}

func UploadJob(result string, encrypt bool) {
	uploadJobs.WithLabelValues(result, strconv.FormatBool(encrypt)).Inc()
}

func AdminAction(action, result string) {
	adminActions.WithLabelValues(action, result).Inc()
}

func LiveClientConnected()    { liveClients.Inc() }
func LiveClientDisconnected() { liveClients.Dec() }

// Handler serves the private registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
