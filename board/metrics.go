package board

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Sheulydsp/kanban-dashboard/domain"
)

var operations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "kanban",
	Subsystem: "board",
	Name:      "operations_total",
	Help:      "Store operations by op and outcome.",
}, []string{"op", "outcome"})

func observe(op Op, err error) {
	operations.WithLabelValues(string(op), outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrDuplicateTask),
		errors.Is(err, domain.ErrNotInColumn),
		errors.Is(err, domain.ErrTaskNotFound):
		return "rejected"
	default:
		return "error"
	}
}
