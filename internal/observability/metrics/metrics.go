package metrics

import "github.com/prometheus/client_golang/prometheus"

// StudioMetrics exposes counters/histograms for appointment, sync and
// notification flows.
type StudioMetrics struct {
	transitions   *prometheus.CounterVec
	syncRecords   *prometheus.CounterVec
	syncDuration  prometheus.Histogram
	deliveries    *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
	paymentEvents *prometheus.CounterVec
}

func NewStudioMetrics(reg prometheus.Registerer) *StudioMetrics {
	m := &StudioMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inkstudio",
			Subsystem: "appointments",
			Name:      "status_transitions_total",
			Help:      "Appointment status transitions by outcome",
		}, []string{"from", "to", "result"}),
		syncRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inkstudio",
			Subsystem: "calsync",
			Name:      "records_total",
			Help:      "External booking records processed by sync",
		}, []string{"outcome"}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "inkstudio",
			Subsystem: "calsync",
			Name:      "run_duration_seconds",
			Help:      "Duration of calendar sync runs",
			Buckets:   prometheus.DefBuckets,
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inkstudio",
			Subsystem: "notifications",
			Name:      "deliveries_total",
			Help:      "Notification delivery attempts by event type and result",
		}, []string{"event_type", "result"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "inkstudio",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
		paymentEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inkstudio",
			Subsystem: "payments",
			Name:      "webhook_events_total",
			Help:      "Stripe webhook events by type and handling result",
		}, []string{"event_type", "result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitions, m.syncRecords, m.syncDuration, m.deliveries, m.httpLatency, m.paymentEvents)
	return m
}

func (m *StudioMetrics) ObserveTransition(from, to string, ok bool) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to, resultLabel(ok)).Inc()
}

// ObserveSync records one finished sync run.
func (m *StudioMetrics) ObserveSync(created, updated, failed int, seconds float64) {
	if m == nil {
		return
	}
	m.syncRecords.WithLabelValues("created").Add(float64(created))
	m.syncRecords.WithLabelValues("updated").Add(float64(updated))
	m.syncRecords.WithLabelValues("failed").Add(float64(failed))
	m.syncDuration.Observe(seconds)
}

func (m *StudioMetrics) ObserveDelivery(eventType, result string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(eventType, result).Inc()
}

func (m *StudioMetrics) ObserveHTTP(method string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.httpLatency.WithLabelValues(method, statusClass(status)).Observe(seconds)
}

func (m *StudioMetrics) ObservePaymentEvent(eventType string, ok bool) {
	if m == nil {
		return
	}
	m.paymentEvents.WithLabelValues(eventType, resultLabel(ok)).Inc()
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
