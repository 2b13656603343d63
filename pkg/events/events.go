// Package events defines the job payloads and lifecycle notifications that
// flow over the event bus between the api, dispatcher and worker processes.
package events

import (
	"time"

	"github.com/dukex/cadence/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Kafka topic shared by all campaign execution events.
const Topic = "cadence.campaign.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Jobs consumed by the worker.
	TimeoutDueEvent           EventType = "timeout.due"
	MessageEventReceivedEvent EventType = "message.event.received"

	// Lifecycle notifications published by the worker.
	CampaignAdvancedEvent  EventType = "campaign.advanced"
	CampaignCompletedEvent EventType = "campaign.completed"
)

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	TenantID   string    `json:"tenant_id"`
	CampaignID string    `json:"campaign_id"`
	WorkerID   string    `json:"worker_id,omitempty"`
}

func NewBaseEvent(eventType EventType, tenantID, campaignID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		TenantID:   tenantID,
		CampaignID: campaignID,
	}
}

// TimeoutDue is the delayed job payload: a persisted timeout check whose
// scheduled time has passed. Delivery is at-least-once; the worker treats
// redeliveries as no-ops via the staleness and supersession checks.
type TimeoutDue struct {
	BaseEvent

	ScheduledActionID string           `json:"scheduled_action_id"`
	NodeID            string           `json:"node_id"`
	MessageID         string           `json:"message_id"`
	EventType         models.EventType `json:"event_type"`
	OriginalJobID     string           `json:"original_job_id,omitempty"`
}

func (t TimeoutDue) GetType() EventType {
	return TimeoutDueEvent
}

// MessageEventReceived announces a recorded real provider event so the worker
// can apply any matching event-class transition.
type MessageEventReceived struct {
	BaseEvent

	MessageEventID string           `json:"message_event_id"`
	MessageID      string           `json:"message_id"`
	EventType      models.EventType `json:"event_type"`
	OccurredAt     time.Time        `json:"occurred_at"`
}

func (m MessageEventReceived) GetType() EventType {
	return MessageEventReceivedEvent
}

// CampaignAdvanced records a transition taken for observability consumers.
type CampaignAdvanced struct {
	BaseEvent

	FromNodeID   string            `json:"from_node_id"`
	ToNodeID     string            `json:"to_node_id"`
	TransitionID string            `json:"transition_id,omitempty"`
	On           models.EventType  `json:"on"`
	NextAction   models.NodeAction `json:"next_action"`
}

func (c CampaignAdvanced) GetType() EventType {
	return CampaignAdvancedEvent
}

// CampaignCompleted is published when a contact reaches a stop node.
type CampaignCompleted struct {
	BaseEvent

	FinalNodeID string `json:"final_node_id"`
}

func (c CampaignCompleted) GetType() EventType {
	return CampaignCompletedEvent
}
