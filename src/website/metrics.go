package website

import (
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsportal/portal/src/jobs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "HTTP requests served, by route, method and status",
		},
		[]string{"route", "method", "status"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "Time to serve HTTP requests, by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	rateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_rate_limited_total",
			Help: "Requests rejected by the rate limiter, by bucket",
		},
		[]string{"bucket"},
	)
	dbPoolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "portal_db_pool_connections",
			Help: "Postgres pool connections, by state",
		},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration, rateLimitedTotal, dbPoolConns)
}

func observeRequest(route, method string, status int, elapsed time.Duration) {
	requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// NewPrivateMux serves metrics and pprof. It is only ever bound to the
// private address.
func NewPrivateMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// MonitorPoolStats publishes pool statistics until the job is canceled.
func MonitorPoolStats(pool *pgxpool.Pool, interval time.Duration) *jobs.Job {
	return jobs.Start("db pool stats", func(j *jobs.Job) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			stat := pool.Stat()
			dbPoolConns.WithLabelValues("total").Set(float64(stat.TotalConns()))
			dbPoolConns.WithLabelValues("idle").Set(float64(stat.IdleConns()))
			dbPoolConns.WithLabelValues("acquired").Set(float64(stat.AcquiredConns()))

			select {
			case <-j.Canceled():
				return
			case <-ticker.C:
			}
		}
	})
}
