package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ShiftTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxi_shift_transitions_total",
		Help: "Shift state machine operations by outcome.",
	},
		[]string{"operation", "outcome"},
	)

	StoreErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxi_shift_store_errors_total",
		Help: "Shift store failures surfaced to callers.",
	},
		[]string{"operation"},
	)

	ShiftsAbandonedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taxi_shifts_abandoned_total",
		Help: "Shifts force-completed by the janitor after waiting too long for cash input.",
	})

	PauseRemindersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taxi_pause_reminders_total",
		Help: "Pause reminders sent to drivers.",
	})

	ReconcileFaultsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taxi_reconcile_faults_total",
		Help: "Restored shift rows that failed validation and fell back to idle.",
	})

	TrackedDrivers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "taxi_tracked_drivers",
		Help: "Drivers with in-memory shift state.",
	})

	AdminEditsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taxi_admin_shift_edits_total",
		Help: "Shift edits applied through the admin panel.",
	})
)
