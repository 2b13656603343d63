package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboundMessage is the bookkeeping row for one node's dispatch. The unique
// DedupeKey is the at-most-once-send invariant: re-running a node for the
// same contact collides on the key instead of sending twice.
type OutboundMessage struct {
	ID                string     `json:"id"          validate:"required"`
	TenantID          string     `json:"tenant_id"   validate:"required"`
	CampaignID        string     `json:"campaign_id" validate:"required"`
	NodeID            string     `json:"node_id"     validate:"required"`
	Channel           string     `json:"channel"`
	DedupeKey         string     `json:"dedupe_key"  validate:"required"`
	ProviderMessageID string     `json:"provider_message_id,omitempty"`
	SendAt            time.Time  `json:"send_at"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// DedupeKeyFor derives the uniqueness key for one node's message to one
// contact. Stable across retries by construction.
func DedupeKeyFor(tenantID, contactID, campaignID, nodeID, channel string) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", tenantID, contactID, campaignID, nodeID, channel)
}

// NewOutboundMessage builds the dispatch bookkeeping for a send node.
func NewOutboundMessage(campaign *ContactCampaign, node *Node, sendAt time.Time) *OutboundMessage {
	return &OutboundMessage{
		ID:         uuid.New().String(),
		TenantID:   campaign.TenantID,
		CampaignID: campaign.ID,
		NodeID:     node.ID,
		Channel:    node.Channel,
		DedupeKey:  DedupeKeyFor(campaign.TenantID, campaign.ContactID, campaign.ID, node.ID, node.Channel),
		SendAt:     sendAt.UTC(),
		CreatedAt:  time.Now().UTC(),
	}
}
