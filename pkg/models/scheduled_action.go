package models

import (
	"time"

	"github.com/google/uuid"
)

// ScheduledActionPayload is carried from the scheduler to the timeout worker.
type ScheduledActionPayload struct {
	EventType     EventType `json:"event_type"`
	MessageID     string    `json:"message_id"`
	OriginalJobID string    `json:"original_job_id,omitempty"`
}

// ScheduledAction is a persisted, queued future timeout check. Rows are
// created transactionally with the send bookkeeping and later converted into
// timeout.due jobs by the dispatcher once ScheduledAt passes.
//
// Delays live here, not in process memory, so pending timeouts survive
// restarts of every component.
type ScheduledAction struct {
	ID          string                 `json:"id"           validate:"required"`
	TenantID    string                 `json:"tenant_id"    validate:"required"`
	CampaignID  string                 `json:"campaign_id"  validate:"required"`
	NodeID      string                 `json:"node_id"      validate:"required"`
	ScheduledAt time.Time              `json:"scheduled_at" validate:"required"`
	Payload     ScheduledActionPayload `json:"payload"`
	ClaimedAt   *time.Time             `json:"claimed_at,omitempty"`
	ExecutedAt  *time.Time             `json:"executed_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// NewScheduledAction builds a pending timeout check for one transition rule.
func NewScheduledAction(tenantID, campaignID, nodeID, messageID string, eventType EventType, scheduledAt time.Time) *ScheduledAction {
	return &ScheduledAction{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		CampaignID:  campaignID,
		NodeID:      nodeID,
		ScheduledAt: scheduledAt.UTC(),
		Payload: ScheduledActionPayload{
			EventType: eventType,
			MessageID: messageID,
		},
		CreatedAt: time.Now().UTC(),
	}
}

// Due reports whether the action should be handed to the queue.
func (a *ScheduledAction) Due(now time.Time) bool {
	return a.ExecutedAt == nil && !a.ScheduledAt.After(now)
}
