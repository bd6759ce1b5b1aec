package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordMessageSent("kafka", "SPY")
	r.RecordMessageSent("kafka", "SPY")
	r.RecordError("solve")
	r.RecordImpliedVol("SPY", 0.21)
	r.RecordLatency("solve", 0.0004)

	if got := testutil.ToFloat64(r.messagesSent.WithLabelValues("kafka", "SPY")); got != 2 {
		t.Fatalf("messages sent = %v", got)
	}
	if got := testutil.ToFloat64(r.lastIV.WithLabelValues("SPY")); got != 0.21 {
		t.Fatalf("last iv = %v", got)
	}
	if n := testutil.CollectAndCount(r.latency); n != 1 {
		t.Fatalf("latency series = %d", n)
	}
}
