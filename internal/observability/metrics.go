package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WorkoutsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "workouts",
		Name:      "created_total",
		Help:      "Workouts added to the log, by kind.",
	}, []string{"kind"})
	ValidationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "workouts",
		Name:      "validation_failures_total",
		Help:      "Workout submissions rejected by input validation.",
	})
	PersistenceFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "storage",
		Name:      "failures_total",
		Help:      "Failed reads, writes and removals of the persisted workout slot.",
	}, []string{"op"})
	CorruptStateDiscards = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "storage",
		Name:      "corrupt_discards_total",
		Help:      "Persisted workout state discarded because it could not be decoded.",
	})
)

func init() {
	prometheus.MustRegister(WorkoutsCreated, ValidationFailures, PersistenceFailures, CorruptStateDiscards)
}

func RecordWorkoutCreated(kind string) {
	WorkoutsCreated.WithLabelValues(kind).Inc()
}

func RecordValidationFailure() {
	ValidationFailures.Inc()
}

func RecordPersistenceFailure(op string) {
	PersistenceFailures.WithLabelValues(op).Inc()
}

func RecordCorruptStateDiscard() {
	CorruptStateDiscards.Inc()
}
