package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeAdvanceCreated   = "advance.created"
	EventTypeAdvanceApproved  = "advance.approved"
	EventTypeAdvanceRejected  = "advance.rejected"
	EventTypeAdvanceDisbursed = "advance.disbursed"
	EventTypeAdvanceRetired   = "advance.retired"
)

var AdvanceEventTypes = []string{
	EventTypeAdvanceCreated,
	EventTypeAdvanceApproved,
	EventTypeAdvanceRejected,
	EventTypeAdvanceDisbursed,
	EventTypeAdvanceRetired,
}

// AdvanceEvent is published after a lifecycle change has been committed.
type AdvanceEvent struct {
	BaseEvent
	AdvanceID     int64  `json:"advance_id"`
	RequestNumber string `json:"request_number"`
	ActorID       int64  `json:"actor_id"`
	FromStatus    string `json:"from_status,omitempty"`
	ToStatus      string `json:"to_status"`
	Amount        int64  `json:"amount"`
}

func NewAdvanceEvent(eventType string, advanceID int64, requestNumber string, actorID int64, from, to string, amount int64) *AdvanceEvent {
	return &AdvanceEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"advance_id":     advanceID,
				"request_number": requestNumber,
				"actor_id":       actorID,
				"from_status":    from,
				"to_status":      to,
				"amount":         amount,
			},
		},
		AdvanceID:     advanceID,
		RequestNumber: requestNumber,
		ActorID:       actorID,
		FromStatus:    from,
		ToStatus:      to,
		Amount:        amount,
	}
}
