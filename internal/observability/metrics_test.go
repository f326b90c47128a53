package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsIsIdempotent(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()
}

func TestRecordersUpdateCounters(t *testing.T) {
	before := testutil.ToFloat64(handshakeOutcomes.WithLabelValues("timeout"))
	RecordHandshakeOutcome("timeout")
	if got := testutil.ToFloat64(handshakeOutcomes.WithLabelValues("timeout")); got != before+1 {
		t.Fatalf("timeout outcomes=%v want %v", got, before+1)
	}

	beforeIn := testutil.ToFloat64(signalMessages.WithLabelValues("in", "offer"))
	RecordSignal("in", "offer")
	if got := testutil.ToFloat64(signalMessages.WithLabelValues("in", "offer")); got != beforeIn+1 {
		t.Fatalf("signal counter=%v", got)
	}

	beforeDropped := testutil.ToFloat64(busDeliveries.WithLabelValues("dropped"))
	RecordBusMessage("drawing", 2, 1)
	if got := testutil.ToFloat64(busDeliveries.WithLabelValues("dropped")); got != beforeDropped+1 {
		t.Fatalf("dropped deliveries=%v", got)
	}

	RecordBusConnection(1)
	RecordBusConnection(-1)
	RecordHandshakeConnected("initiator")
}
