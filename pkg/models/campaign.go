package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ContactCampaign is the runtime instance tracking one contact's progress
// through a frozen plan snapshot.
//
// The materialized position (CurrentNodeID, EnteredNodeAt, Version) is the
// single source of truth for staleness checks: every advance bumps Version
// under an optimistic check, so a late timeout for a node the contact already
// left can be detected and neutralized.
type ContactCampaign struct {
	ID            string          `json:"id"         validate:"required"`
	TenantID      string          `json:"tenant_id"  validate:"required"`
	ContactID     string          `json:"contact_id" validate:"required"`
	LeadID        string          `json:"lead_id"`
	PlanJSON      json.RawMessage `json:"plan_json"  validate:"required"`
	StartedAt     time.Time       `json:"started_at"`
	CurrentNodeID string          `json:"current_node_id"`
	EnteredNodeAt time.Time       `json:"entered_node_at"`
	Version       int64           `json:"version"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	// Plan is the decoded snapshot. Never persisted separately from PlanJSON.
	Plan *CampaignPlan `json:"-"`
}

// NewContactCampaign freezes the given plan for one contact and positions it
// at the plan's start node.
func NewContactCampaign(tenantID, contactID, leadID string, rawPlan []byte) (*ContactCampaign, error) {
	plan, err := ParsePlan(rawPlan)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	return &ContactCampaign{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		ContactID:     contactID,
		LeadID:        leadID,
		PlanJSON:      json.RawMessage(rawPlan),
		StartedAt:     now,
		CurrentNodeID: plan.StartNodeID,
		EnteredNodeAt: now,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
		Plan:          plan,
	}, nil
}

// DecodePlan populates Plan from the frozen snapshot. Repositories call this
// after loading a row.
func (c *ContactCampaign) DecodePlan() error {
	plan, err := ParsePlan(c.PlanJSON)
	if err != nil {
		return err
	}

	c.Plan = plan

	return nil
}

// Completed reports whether the campaign reached a stop node.
func (c *ContactCampaign) Completed() bool {
	return c.CompletedAt != nil
}

// CurrentNode resolves the campaign's position in its plan.
func (c *ContactCampaign) CurrentNode() (*Node, bool) {
	if c.Plan == nil {
		return nil, false
	}

	return c.Plan.NodeByID(c.CurrentNodeID)
}
