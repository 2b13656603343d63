package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageEvent is a recorded real-world occurrence (open/click/delivery) tied
// to a sent message. Rows are written by webhook ingestion and read by the
// timeout worker's supersession check, so a real event always defeats a
// pending timeout regardless of which becomes ready first.
type MessageEvent struct {
	ID         string    `json:"id"          validate:"required"`
	TenantID   string    `json:"tenant_id"   validate:"required"`
	MessageID  string    `json:"message_id"  validate:"required"`
	Type       EventType `json:"type"        validate:"required"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewMessageEvent records one provider event against a sent message.
func NewMessageEvent(tenantID, messageID string, eventType EventType, occurredAt time.Time) *MessageEvent {
	return &MessageEvent{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		MessageID:  messageID,
		Type:       eventType,
		OccurredAt: occurredAt.UTC(),
		CreatedAt:  time.Now().UTC(),
	}
}
