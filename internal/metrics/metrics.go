// Package metrics defines the Prometheus instruments for the liveness
// subsystem, exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Connection registry and broadcast metrics
var (
	// RegistryConnections tracks the number of registered device connections.
	RegistryConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_connections",
			Help: "Number of device connections currently registered",
		},
	)

	// BroadcastsSentTotal counts event frames delivered to devices.
	BroadcastsSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcasts_sent_total",
			Help: "Total event frames delivered to connected devices",
		},
	)

	// BroadcastsSkippedTotal counts devices skipped during a broadcast
	// because they had no open connection.
	BroadcastsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcasts_skipped_total",
			Help: "Total devices skipped during broadcast (no open connection)",
		},
	)

	// CatchUpSendsTotal counts catch-up deliveries to freshly initialized devices.
	CatchUpSendsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catchup_sends_total",
			Help: "Total catch-up event deliveries on device init",
		},
	)
)

// Heartbeat metrics
var (
	// HeartbeatSweepsTotal counts completed liveness sweeps.
	HeartbeatSweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "heartbeat_sweeps_total",
			Help: "Total heartbeat liveness sweeps executed",
		},
	)

	// HeartbeatEvictionsTotal counts connections terminated for missing a pong.
	HeartbeatEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "heartbeat_evictions_total",
			Help: "Total connections terminated after a missed pong",
		},
	)
)

// Reconciliation metrics
var (
	// SchedulerTaskRunsTotal counts task invocations by task name and outcome.
	SchedulerTaskRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_task_runs_total",
			Help: "Total scheduled task invocations by task and status",
		},
		[]string{"task", "status"},
	)

	// SchedulerTaskPanicsTotal counts recovered task panics.
	SchedulerTaskPanicsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_task_panics_total",
			Help: "Total recovered panics in scheduled tasks",
		},
		[]string{"task"},
	)

	// DevicesForcedInactiveTotal counts devices reconciled to inactive.
	DevicesForcedInactiveTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "devices_forced_inactive_total",
			Help: "Total devices forced inactive by reconciliation",
		},
	)

	// RecordingsTimedOutTotal counts recordings closed by the absolute timeout.
	RecordingsTimedOutTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recordings_timed_out_total",
			Help: "Total recordings marked timed out with error",
		},
	)

	// RecordingsDisconnectedTotal counts recordings closed by heartbeat loss.
	RecordingsDisconnectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recordings_disconnected_total",
			Help: "Total recordings marked disconnected after heartbeat loss",
		},
	)
)

// Circuit breaker metrics
var (
	// CircuitBreakerStateChanges tracks breaker state transitions by component.
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)

	// CircuitBreakerState tracks current state (0=closed, 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)
