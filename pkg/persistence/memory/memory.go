// Package memory provides an in-memory persistence implementation for tests
// and local development. It enforces the same invariants as the PostgreSQL
// store: optimistic version checks, dedupe key uniqueness and exclusive
// claims.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dukex/cadence/pkg/models"
	"github.com/dukex/cadence/pkg/persistence"
)

type Persistence struct {
	mu        sync.Mutex
	campaigns map[string]*models.ContactCampaign
	actions   map[string]*models.ScheduledAction
	events    []*models.MessageEvent
	messages  map[string]*models.OutboundMessage
	dedupe    map[string]bool
}

func NewPersistence() *Persistence {
	return &Persistence{
		campaigns: make(map[string]*models.ContactCampaign),
		actions:   make(map[string]*models.ScheduledAction),
		messages:  make(map[string]*models.OutboundMessage),
		dedupe:    make(map[string]bool),
	}
}

func (p *Persistence) CreateContactCampaign(ctx context.Context, campaign *models.ContactCampaign) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	clone := *campaign
	p.campaigns[campaign.ID] = &clone

	return nil
}

func (p *Persistence) ContactCampaignByID(ctx context.Context, tenantID, campaignID string) (*models.ContactCampaign, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	campaign, ok := p.campaigns[campaignID]
	if !ok || campaign.TenantID != tenantID {
		return nil, persistence.NewCampaignError("GetByID", campaignID, persistence.ErrCampaignNotFound)
	}

	clone := *campaign
	if err := clone.DecodePlan(); err != nil {
		return nil, err
	}

	return &clone, nil
}

func (p *Persistence) AdvanceCampaign(ctx context.Context, advance *persistence.CampaignAdvance) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	stored, ok := p.campaigns[advance.Campaign.ID]
	if !ok {
		return persistence.NewCampaignError("AdvanceCampaign", advance.Campaign.ID, persistence.ErrCampaignNotFound)
	}

	if stored.Version != advance.ExpectedVersion {
		return persistence.NewCampaignError("AdvanceCampaign", advance.Campaign.ID, persistence.ErrStaleCampaign)
	}

	if advance.Message != nil && p.dedupe[advance.Message.DedupeKey] {
		return persistence.NewCampaignError("AdvanceCampaign", advance.Campaign.ID, persistence.ErrDuplicateSend)
	}

	stored.CurrentNodeID = advance.Campaign.CurrentNodeID
	stored.EnteredNodeAt = advance.Campaign.EnteredNodeAt
	stored.CompletedAt = advance.Campaign.CompletedAt
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	advance.Campaign.Version = stored.Version

	if advance.Message != nil {
		clone := *advance.Message
		p.messages[clone.ID] = &clone
		p.dedupe[clone.DedupeKey] = true
	}

	for _, action := range advance.Actions {
		clone := *action
		p.actions[clone.ID] = &clone
	}

	if advance.ExecutedActionID != "" {
		if action, ok := p.actions[advance.ExecutedActionID]; ok && action.ExecutedAt == nil {
			now := time.Now().UTC()
			action.ExecutedAt = &now
		}
	}

	return nil
}

func (p *Persistence) CreateMessageEvent(ctx context.Context, event *models.MessageEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	clone := *event
	p.events = append(p.events, &clone)

	return nil
}

func (p *Persistence) MessageEventExists(ctx context.Context, tenantID, messageID string, types []models.EventType) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, event := range p.events {
		if event.TenantID != tenantID || event.MessageID != messageID {
			continue
		}

		for _, t := range types {
			if event.Type == t {
				return true, nil
			}
		}
	}

	return false, nil
}

func (p *Persistence) ClaimDueScheduledActions(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledAction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	due := make([]*models.ScheduledAction, 0)

	for _, action := range p.actions {
		if action.ExecutedAt == nil && action.ClaimedAt == nil && !action.ScheduledAt.After(now) {
			due = append(due, action)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].ScheduledAt.Before(due[j].ScheduledAt)
	})

	if len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]*models.ScheduledAction, 0, len(due))
	claimTime := now.UTC()

	for _, action := range due {
		action.ClaimedAt = &claimTime
		clone := *action
		claimed = append(claimed, &clone)
	}

	return claimed, nil
}

func (p *Persistence) MarkScheduledActionExecuted(ctx context.Context, actionID string, executedAt time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	action, ok := p.actions[actionID]
	if !ok || action.ExecutedAt != nil {
		return persistence.ErrActionNotFound
	}

	at := executedAt.UTC()
	action.ExecutedAt = &at

	return nil
}

func (p *Persistence) ReleaseStaleClaims(ctx context.Context, staleBefore time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var released int64

	for _, action := range p.actions {
		if action.ExecutedAt == nil && action.ClaimedAt != nil && action.ClaimedAt.Before(staleBefore) {
			action.ClaimedAt = nil
			released++
		}
	}

	return released, nil
}

func (p *Persistence) PendingScheduledActions(ctx context.Context, tenantID, campaignID string) ([]*models.ScheduledAction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pending := make([]*models.ScheduledAction, 0)

	for _, action := range p.actions {
		if action.TenantID == tenantID && action.CampaignID == campaignID && action.ExecutedAt == nil {
			clone := *action
			pending = append(pending, &clone)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].ScheduledAt.Before(pending[j].ScheduledAt)
	})

	return pending, nil
}

func (p *Persistence) OutboundMessageByID(ctx context.Context, tenantID, messageID string) (*models.OutboundMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	message, ok := p.messages[messageID]
	if !ok || message.TenantID != tenantID {
		return nil, persistence.ErrMessageNotFound
	}

	clone := *message

	return &clone, nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return nil
}

func (p *Persistence) Close(ctx context.Context) error {
	return nil
}
