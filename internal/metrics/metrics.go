// Package metrics счётчики Prometheus для ядра записи
package metrics

import (
	"errors"
	"time"

	"github.com/Freeeeeet/slotbook/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "slotbook"

var (
	// reservations итоги попыток записи
	// Labels: outcome (created, slot_taken, outside_availability, validation, lock_timeout, error)
	reservations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reservations_total",
		Help:      "Total reservation attempts by outcome",
	}, []string{"outcome"})

	lockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reservation_lock_wait_seconds",
		Help:      "Time spent inside the provider-scoped reservation section",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})

	// Labels: status (целевой статус записи)
	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_transitions_total",
		Help:      "Total applied booking status transitions",
	}, []string{"status"})

	// Labels: op (add, update, remove, add_group, remove_group)
	windowChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "window_changes_total",
		Help:      "Total availability window changes",
	}, []string{"op"})
)

// ObserveReservation учитывает итог попытки записи
func ObserveReservation(err error) {
	reservations.WithLabelValues(Outcome(err)).Inc()
}

// ObserveLockWait учитывает время с начала ожидания блокировки провайдера до фиксации
func ObserveLockWait(d time.Duration) {
	lockWait.Observe(d.Seconds())
}

func ObserveTransition(status model.BookingStatus) {
	transitions.WithLabelValues(string(status)).Inc()
}

func ObserveWindowChange(op string) {
	windowChanges.WithLabelValues(op).Inc()
}

// Outcome метка итога записи по ошибке
func Outcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, model.ErrSlotTaken):
		return "slot_taken"
	case errors.Is(err, model.ErrOutsideAvailability):
		return "outside_availability"
	case errors.Is(err, model.ErrValidation):
		return "validation"
	case errors.Is(err, model.ErrLockTimeout):
		return "lock_timeout"
	default:
		return "error"
	}
}
