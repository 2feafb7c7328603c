package observability

import (
	"context"

	"go.uber.org/zap"
)

// EventBus implements the EventPublisher interface on top of the context logger.
type EventBus struct {
	logger *zap.Logger
}

// NewEventBus creates a new event bus.
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		logger: logger,
	}
}

// Publish publishes an event with the given type and data.
func (e *EventBus) Publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if e.logger == nil {
		return
	}

	fields := make([]zap.Field, 0, len(data)+2)
	fields = append(fields, zap.String("event", eventType))
	if runID := GetRunID(ctx); runID != "" {
		fields = append(fields, zap.String("run_id", runID))
	}
	for k, v := range data {
		fields = append(fields, zap.Any(k, v))
	}

	e.logger.Info("event published", fields...)
}
