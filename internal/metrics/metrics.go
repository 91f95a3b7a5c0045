package metrics

import (
	"context"
	"net/http"

	"github.com/fjod/go_checkout/internal/bus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SagaMetrics counts saga outcomes and consumed events per service.
type SagaMetrics struct {
	EventsConsumed *prometheus.CounterVec
	SagasCompleted prometheus.Counter
	SagasFailed    prometheus.Counter
}

func NewSagaMetrics(service string) *SagaMetrics {
	eventsConsumed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Subsystem: service,
		Name:      "events_consumed_total",
		Help:      "Total number of saga events consumed.",
	}, []string{"topic"})
	sagasCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "checkout",
		Subsystem: service,
		Name:      "sagas_completed_total",
		Help:      "Total number of checkout sagas that reached COMPLETED.",
	})
	sagasFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "checkout",
		Subsystem: service,
		Name:      "sagas_failed_total",
		Help:      "Total number of checkout sagas that reached FAILED.",
	})

	prometheus.MustRegister(eventsConsumed, sagasCompleted, sagasFailed)
	return &SagaMetrics{
		EventsConsumed: eventsConsumed,
		SagasCompleted: sagasCompleted,
		SagasFailed:    sagasFailed,
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Counted wraps a bus handler so every delivery is counted per topic.
func Counted(m *SagaMetrics, topic string, h bus.Handler) bus.Handler {
	return func(ctx context.Context, msg bus.Message) error {
		m.EventsConsumed.WithLabelValues(topic).Inc()
		return h(ctx, msg)
	}
}
