package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg      *prometheus.Registry
	HttpDur  *prometheus.HistogramVec
	DbDur    *prometheus.HistogramVec
	DbErr    *prometheus.CounterVec
	Connects *prometheus.CounterVec
}

func New() *Registry {
	r := prometheus.NewRegistry()
	httpDur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
	dbDur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "DB statement duration by operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	dbErr := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "DB errors by operation",
		},
		[]string{"op"},
	)
	connects := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_connect_attempts_total",
			Help: "Pool creation attempts by result",
		},
		[]string{"result"},
	)

	r.MustRegister(
		httpDur, dbDur, dbErr, connects,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return &Registry{reg: r, HttpDur: httpDur, DbDur: dbDur, DbErr: dbErr, Connects: connects}
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveDB records one statement; err != nil also bumps db_errors_total.
func (r *Registry) ObserveDB(op string, d time.Duration, err error) {
	r.DbDur.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		r.DbErr.WithLabelValues(op).Inc()
	}
}

func (r *Registry) ObserveConnect(err error) {
	res := "ok"
	if err != nil {
		res = "error"
	}
	r.Connects.WithLabelValues(res).Inc()
}

func (r *Registry) MW(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := &wrap{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, req)
		r.HttpDur.WithLabelValues(route(req), req.Method, strconv.Itoa(ww.status)).
			Observe(time.Since(start).Seconds())
	})
}

func (r *Registry) Reg() *prometheus.Registry { return r.reg }

// route prefers the chi pattern so unknown paths don't explode cardinality.
func route(req *http.Request) string {
	if rc := chi.RouteContext(req.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

type wrap struct {
	http.ResponseWriter
	status int
}

func (w *wrap) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
