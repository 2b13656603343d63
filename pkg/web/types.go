package web

import (
	"encoding/json"
	"time"
)

// StartCampaignRequest starts one contact on a plan. The plan is validated
// and frozen onto the campaign at creation.
type StartCampaignRequest struct {
	TenantID  string          `json:"tenant_id"  validate:"required"`
	ContactID string          `json:"contact_id" validate:"required"`
	LeadID    string          `json:"lead_id"`
	Plan      json.RawMessage `json:"plan"       validate:"required"`
}

// WebhookEventRequest is one provider occurrence reported by inbound webhook
// processing. MessageID refers to the outbound message id returned when the
// send was recorded.
type WebhookEventRequest struct {
	TenantID   string    `json:"tenant_id"   validate:"required"`
	MessageID  string    `json:"message_id"  validate:"required"`
	Type       string    `json:"type"        validate:"required"`
	OccurredAt time.Time `json:"occurred_at"`
}
