package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStudioMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStudioMetrics(reg)
	m.ObserveTransition("SCHEDULED", "CONFIRMED", true)
	m.ObserveSync(3, 2, 1, 0.4)
	m.ObserveDelivery("appointment.status_changed", "delivered")
	m.ObserveHTTP("GET", 404, 0.01)
	m.ObservePaymentEvent("payment_intent.succeeded", true)

	if got := testutil.ToFloat64(m.syncRecords.WithLabelValues("created")); got != 3 {
		t.Fatalf("expected 3 created records, got %v", got)
	}
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("SCHEDULED", "CONFIRMED", "ok")); got != 1 {
		t.Fatalf("expected one transition, got %v", got)
	}
}

func TestStudioMetricsNilSafe(t *testing.T) {
	var m *StudioMetrics
	m.ObserveTransition("a", "b", false)
	m.ObserveSync(1, 1, 1, 1)
	m.ObserveDelivery("event", "dead")
	m.ObserveHTTP("POST", 500, 0.1)
	m.ObservePaymentEvent("event", false)
}

func TestStatusClass(t *testing.T) {
	cases := map[int]string{200: "2xx", 302: "3xx", 409: "4xx", 503: "5xx"}
	for code, want := range cases {
		if got := statusClass(code); got != want {
			t.Fatalf("statusClass(%d) = %s, want %s", code, got, want)
		}
	}
}
