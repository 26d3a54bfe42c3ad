package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Engine metrics
	TimersActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stovetop_timers_active",
			Help: "Number of tracked timers by status",
		},
		[]string{"status"},
	)

	TicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stovetop_ticks_total",
			Help: "Total number of per-second ticks delivered",
		},
	)

	AlarmsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stovetop_alarms_total",
			Help: "Total number of timers that reached zero and alarmed",
		},
	)

	// Storage metrics
	EnvelopeWritesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stovetop_envelope_writes_total",
			Help: "Total number of full-envelope persistence writes",
		},
	)

	EnvelopeCorruptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stovetop_envelope_corrupt_total",
			Help: "Total number of unparseable envelopes replaced with empty state",
		},
	)

	// Cross-context sync metrics
	SyncMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stovetop_sync_messages_total",
			Help: "Total cross-context messages by kind and direction",
		},
		[]string{"kind", "direction"},
	)

	// Reconciliation metrics
	SocketConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "stovetop_socket_connected",
			Help: "Whether the reconciliation socket is open (1 = open)",
		},
	)

	ReconnectAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stovetop_reconnect_attempts_total",
			Help: "Total reconciliation socket reconnect attempts",
		},
	)

	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stovetop_commands_total",
			Help: "Total point-to-point timer commands by action and result",
		},
		[]string{"action", "result"},
	)

	ServerTimersReconciled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stovetop_server_timers_reconciled_total",
			Help: "Total server timer records merged into local state",
		},
	)
)

func init() {
	prometheus.MustRegister(TimersActive)
	prometheus.MustRegister(TicksTotal)
	prometheus.MustRegister(AlarmsTotal)
	prometheus.MustRegister(EnvelopeWritesTotal)
	prometheus.MustRegister(EnvelopeCorruptTotal)
	prometheus.MustRegister(SyncMessagesTotal)
	prometheus.MustRegister(SocketConnected)
	prometheus.MustRegister(ReconnectAttemptsTotal)
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(ServerTimersReconciled)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
