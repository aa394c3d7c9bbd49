package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the write-gate decision metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	PermissionDenials     *prometheus.CounterVec
	FieldsDropped         *prometheus.CounterVec
	StageTransitions      *prometheus.CounterVec
	AvailabilityChecks    prometheus.Counter
	AvailabilityConflicts prometheus.Counter

	// Redis metrics
	BrokerPublishes *prometheus.CounterVec

	// HTTP metrics
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PermissionDenials: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "permission_denials_total",
			Help:      "Total number of denied lifecycle actions and edits",
		}, []string{"entity", "action"}),
		FieldsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fields_dropped_total",
			Help:      "Total number of requested fields dropped by field permissions",
		}, []string{"entity"}),
		StageTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_transitions_total",
			Help:      "Total number of stage transition attempts by result",
		}, []string{"result"}),
		AvailabilityChecks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_checks_total",
			Help:      "Total number of dentist availability checks",
		}),
		AvailabilityConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_conflicts_total",
			Help:      "Total number of overlapping appointments reported",
		}),
		BrokerPublishes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broker_publishes_total",
			Help:      "Total number of domain events published",
		}, []string{"channel", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
	}
}

func (m *Metrics) Denied(entity, action string) {
	if m == nil {
		return
	}
	m.PermissionDenials.WithLabelValues(entity, action).Inc()
}

func (m *Metrics) Dropped(entity string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.FieldsDropped.WithLabelValues(entity).Add(float64(n))
}

func (m *Metrics) Transition(result string) {
	if m == nil {
		return
	}
	m.StageTransitions.WithLabelValues(result).Inc()
}

func (m *Metrics) Availability(conflicts int) {
	if m == nil {
		return
	}
	m.AvailabilityChecks.Inc()
	m.AvailabilityConflicts.Add(float64(conflicts))
}

func (m *Metrics) Published(channel string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.BrokerPublishes.WithLabelValues(channel, status).Inc()
}

func (m *Metrics) Request(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, path, status).Observe(seconds)
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
}
