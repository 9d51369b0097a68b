package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rollcall"

// Prom holds every collector the api and worker binaries export.
type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec

	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// outbound notification deliveries, labelled by notification type and outcome
	DeliveryDuration   *prometheus.HistogramVec
	DeliveryResults    *prometheus.CounterVec
	DeliveriesInFlight prometheus.Gauge

	CheckInsTotal    *prometheus.CounterVec
	InvitationsTotal *prometheus.CounterVec

	// 1 while the email provider breaker is open or half-open
	NotifierBreakerOpen prometheus.Gauge
}

func counterVec(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

func histogramVec(subsystem, name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help, Buckets: buckets,
	}, labels)
}

func gauge(subsystem, name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	})
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: counterVec("http", "requests_total",
			"HTTP requests by method, route template and status.",
			"method", "route", "status"),
		RequestsDuration: histogramVec("http", "request_duration_seconds",
			"HTTP request latency.",
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			"method", "route", "status"),
		InFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "in_flight_requests",
			Help: "Requests currently being served.",
		}, []string{"method", "route"}),

		DbQueryDuration: histogramVec("db", "query_duration_seconds",
			"Store operation latency by logical op.",
			[]float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2},
			"op", "status"),
		DbErrorsTotal: counterVec("db", "errors_total",
			"Store failures by logical op and error class.",
			"op", "class"),

		DeliveryDuration: histogramVec("notifications", "delivery_duration_seconds",
			"Time spent handing one notification to the provider.",
			[]float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			"type", "outcome"),
		DeliveryResults: counterVec("notifications", "deliveries_total",
			"Notification delivery attempts by type and outcome (done, retry, dead).",
			"type", "outcome"),
		DeliveriesInFlight: gauge("notifications", "deliveries_in_flight",
			"Deliveries currently executing in this worker process."),

		CheckInsTotal: counterVec("checkin", "transitions_total",
			"Attendance transitions by participant role and direction.",
			"role", "action"),
		InvitationsTotal: counterVec("invitations", "events_total",
			"Invitation dispatches and responses by outcome.",
			"outcome"),

		NotifierBreakerOpen: gauge("notifier", "breaker_open",
			"Whether the email provider circuit breaker is rejecting sends."),
	}

	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.DeliveryDuration, p.DeliveryResults, p.DeliveriesInFlight,
		p.CheckInsTotal, p.InvitationsTotal,
		p.NotifierBreakerOpen,
	)
	return p
}

// GinHandleMiddleware records request count, latency and concurrency per
// route template. Unrouted requests share the "unmatched" label.
func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		inFlight := p.InFlight.WithLabelValues(method, route)
		inFlight.Inc()
		defer inFlight.Dec()

		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
	}
}
