package events

import (
	"context"
	"log/slog"
)

// SubscribeAuditLog writes one structured line per lifecycle event.
func SubscribeAuditLog(bus *EventBus, logger *slog.Logger) {
	handler := func(ctx context.Context, event Event) error {
		attrs := []any{"event_id", event.EventID(), "event_type", event.EventType(), "occurred_at", event.OccurredAt()}
		if ae, ok := event.(*AdvanceEvent); ok {
			attrs = append(attrs,
				"advance_id", ae.AdvanceID,
				"request_number", ae.RequestNumber,
				"actor_id", ae.ActorID,
				"from_status", ae.FromStatus,
				"to_status", ae.ToStatus,
				"amount", ae.Amount)
		}
		logger.InfoContext(ctx, "audit", attrs...)
		return nil
	}

	for _, t := range AdvanceEventTypes {
		bus.Subscribe(t, handler)
	}
}
