package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Métricas del store de identidad. Viven en un paquete aparte para que el
// adapter y la CLI las compartan sin ciclos de import.

var (
	StoreOpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "identity_store_op_duration_seconds",
		Help:    "Latencia de las operaciones del user store",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"op", "result"})

	StoreUniqueViolations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_store_unique_violations_total",
		Help: "Escrituras rechazadas por índice único",
	}, []string{"op"})

	StoreWriteFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_store_write_failures_total",
		Help: "Escrituras no confirmadas por el backend (storage conflict)",
	}, []string{"op"})
)

// Resultados posibles para la etiqueta "result".
const (
	ResultOK        = "ok"
	ResultNotFound  = "not_found"
	ResultUnique    = "unique_violation"
	ResultConflict  = "storage_conflict"
	ResultCancelled = "cancelled"
	ResultInvalid   = "invalid_argument"
	ResultError     = "error"
)

// ObserveOp registra la duración de una operación.
func ObserveOp(op, result string, started time.Time) {
	StoreOpDuration.WithLabelValues(op, result).Observe(time.Since(started).Seconds())
	switch result {
	case ResultUnique:
		StoreUniqueViolations.WithLabelValues(op).Inc()
	case ResultConflict:
		StoreWriteFailures.WithLabelValues(op).Inc()
	}
}

// RegisterStore registers the store metrics on the given registry (or default if nil).
func RegisterStore(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{StoreOpDuration, StoreUniqueViolations, StoreWriteFailures} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
