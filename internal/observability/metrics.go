package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	signalMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "warpdraw",
			Subsystem: "handshake",
			Name:      "signal_messages_total",
			Help:      "Signaling messages seen by the handshake coordinator.",
		},
		[]string{"direction", "type"},
	)
	handshakeConnected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "warpdraw",
			Subsystem: "handshake",
			Name:      "connected_total",
			Help:      "Handshakes that reached the connected phase.",
		},
		[]string{"role"},
	)
	handshakeOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "warpdraw",
			Subsystem: "handshake",
			Name:      "sessions_ended_total",
			Help:      "Sessions torn down, by outcome.",
		},
		[]string{"outcome"},
	)
	busConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "warpdraw",
			Subsystem: "bus",
			Name:      "connections",
			Help:      "Open websocket connections on the signaling bus.",
		},
	)
	busMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "warpdraw",
			Subsystem: "bus",
			Name:      "messages_total",
			Help:      "Messages relayed by the signaling bus.",
		},
		[]string{"channel"},
	)
	busDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "warpdraw",
			Subsystem: "bus",
			Name:      "deliveries_total",
			Help:      "Per-listener deliveries by the signaling bus.",
		},
		[]string{"result"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			signalMessages,
			handshakeConnected,
			handshakeOutcomes,
			busConnections,
			busMessages,
			busDeliveries,
		)
	})
}

func RecordSignal(direction, msgType string) {
	RegisterMetrics()
	signalMessages.WithLabelValues(direction, msgType).Inc()
}

func RecordHandshakeConnected(role string) {
	RegisterMetrics()
	handshakeConnected.WithLabelValues(role).Inc()
}

func RecordHandshakeOutcome(outcome string) {
	RegisterMetrics()
	handshakeOutcomes.WithLabelValues(outcome).Inc()
}

func RecordBusConnection(delta int) {
	RegisterMetrics()
	busConnections.Add(float64(delta))
}

func RecordBusMessage(channel string, delivered, dropped int) {
	RegisterMetrics()
	busMessages.WithLabelValues(channel).Inc()
	busDeliveries.WithLabelValues("delivered").Add(float64(delivered))
	busDeliveries.WithLabelValues("dropped").Add(float64(dropped))
}
