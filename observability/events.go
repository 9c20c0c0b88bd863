package observability

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"escrowd/core/events"
)

type eventMetrics struct {
	emitted *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking structured ledger events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "escrowd",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of ledger events segmented by event type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(eventRegistry.emitted)
	})
	return eventRegistry
}

// Record increments the event counter for the supplied event type.
func (m *eventMetrics) Record(eventType string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(eventType)
	if normalized == "" {
		normalized = "unknown"
	}
	m.emitted.WithLabelValues(normalized).Inc()
}

// EventLogger bridges ledger events into structured logs and metrics. It
// implements the events.Emitter interface so it can be fanned in alongside
// other subscribers.
type EventLogger struct {
	logger *slog.Logger
}

// NewEventLogger wraps the supplied logger; a nil logger falls back to the
// process default.
func NewEventLogger(logger *slog.Logger) *EventLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventLogger{logger: logger}
}

// Emit implements the events.Emitter interface.
func (l *EventLogger) Emit(evt *events.Event) {
	if l == nil || evt == nil {
		return
	}
	Events().Record(evt.Type)
	attrs := make([]any, 0, len(evt.Attributes)*2+2)
	attrs = append(attrs, slog.String("event", evt.Type))
	for key, value := range evt.Attributes {
		attrs = append(attrs, slog.String(key, value))
	}
	l.logger.Info("ledger event", attrs...)
}
