package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func value(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetCounter().GetValue()
}

func TestObserveRequest(t *testing.T) {
	before := value(t, HTTPRequestsTotal.WithLabelValues("GET", "/healthz", "200"))
	ObserveRequest("GET", "/healthz", 200, 3*time.Millisecond)
	after := value(t, HTTPRequestsTotal.WithLabelValues("GET", "/healthz", "200"))
	if after != before+1 {
		t.Fatalf("counter = %v, want %v", after, before+1)
	}
}

func TestOutcome(t *testing.T) {
	if Outcome(nil) != "ok" || Outcome(errors.New("x")) != "error" {
		t.Fatal("unexpected outcome labels")
	}
}
