package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry hands out label-vector metrics, registering each name once.
type Registry struct {
	reg        prometheus.Registerer
	namespace  string
	counters   sync.Map // name -> *prometheus.CounterVec
	histograms sync.Map // name -> *prometheus.HistogramVec
}

func New(reg prometheus.Registerer, namespace string) *Registry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Registry{reg: reg, namespace: namespace}
}

func (r *Registry) Counter(name, help string, labelKeys ...string) *prometheus.CounterVec {
	if v, ok := r.counters.Load(name); ok {
		return v.(*prometheus.CounterVec)
	}
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace, Name: name, Help: help,
	}, labelKeys)
	actual, loaded := r.counters.LoadOrStore(name, cv)
	if !loaded {
		r.reg.MustRegister(cv)
	}
	return actual.(*prometheus.CounterVec)
}

func (r *Registry) Histogram(name, help string, buckets []float64, labelKeys ...string) *prometheus.HistogramVec {
	if v, ok := r.histograms.Load(name); ok {
		return v.(*prometheus.HistogramVec)
	}
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace, Name: name, Help: help, Buckets: buckets,
	}, labelKeys)
	actual, loaded := r.histograms.LoadOrStore(name, hv)
	if !loaded {
		r.reg.MustRegister(hv)
	}
	return actual.(*prometheus.HistogramVec)
}

// App metrics used outside the HTTP middleware.
type App struct {
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	OrdersCheckedOut *prometheus.CounterVec
	OrderTransitions *prometheus.CounterVec
	EmailsSent       *prometheus.CounterVec
}

func NewApp(r *Registry) *App {
	return &App{
		HTTPRequests: r.Counter("http_requests_total", "HTTP requests by method, route and status.",
			"method", "route", "status"),
		HTTPDuration: r.Histogram("http_request_duration_seconds", "HTTP request latency.", nil,
			"method", "route", "status"),
		OrdersCheckedOut: r.Counter("orders_checked_out_total", "Checkouts by result.", "result"),
		OrderTransitions: r.Counter("order_transitions_total", "Order status changes.", "from", "to"),
		EmailsSent:       r.Counter("emails_sent_total", "Outbound emails by kind and result.", "kind", "result"),
	}
}
