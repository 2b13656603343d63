// Package persistence provides the data storage abstraction for campaign
// execution state. The relational store is the single source of truth for
// campaign position, scheduled actions and message events; all cross-process
// coordination happens through it.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/cadence/pkg/models"
)

// CampaignAdvance is the atomic unit of campaign progress: the position
// update (guarded by ExpectedVersion), the optional send bookkeeping, the
// next node's timeout rows and the consumption of the scheduled action that
// caused the advance all commit or roll back together. A failed send never
// leaves orphaned timeouts and a failed schedule never leaves a send without
// its safety net.
type CampaignAdvance struct {
	Campaign        *models.ContactCampaign
	ExpectedVersion int64
	Message         *models.OutboundMessage
	Actions         []*models.ScheduledAction

	// ExecutedActionID, when set, marks the scheduled action consumed by this
	// advance as executed in the same transaction.
	ExecutedActionID string
}

type Persistence interface {
	CreateContactCampaign(ctx context.Context, campaign *models.ContactCampaign) error
	ContactCampaignByID(ctx context.Context, tenantID, campaignID string) (*models.ContactCampaign, error)

	// AdvanceCampaign applies one transition atomically. Returns
	// ErrStaleCampaign when ExpectedVersion lost an optimistic race and
	// ErrDuplicateSend when the message's dedupe key already exists.
	AdvanceCampaign(ctx context.Context, advance *CampaignAdvance) error

	CreateMessageEvent(ctx context.Context, event *models.MessageEvent) error

	// MessageEventExists reports whether any event of the given types was
	// recorded for the message. Used by the supersession race check.
	MessageEventExists(ctx context.Context, tenantID, messageID string, types []models.EventType) (bool, error)

	// ClaimDueScheduledActions claims up to limit unexecuted, unclaimed
	// actions whose ScheduledAt has passed and returns them. Claims are
	// exclusive across concurrent dispatchers; redelivery after a crash is
	// acceptable because the worker is idempotent.
	ClaimDueScheduledActions(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledAction, error)

	MarkScheduledActionExecuted(ctx context.Context, actionID string, executedAt time.Time) error

	// ReleaseStaleClaims requeues actions claimed before staleBefore that
	// never executed (dispatcher crashed between claim and publish).
	ReleaseStaleClaims(ctx context.Context, staleBefore time.Time) (int64, error)

	// PendingScheduledActions lists unexecuted actions for one campaign.
	PendingScheduledActions(ctx context.Context, tenantID, campaignID string) ([]*models.ScheduledAction, error)

	OutboundMessageByID(ctx context.Context, tenantID, messageID string) (*models.OutboundMessage, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
