package campaign

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dukex/cadence/pkg/events"
	"github.com/dukex/cadence/pkg/models"
	"github.com/dukex/cadence/pkg/persistence"
)

// Service is the application entry point for campaign lifecycle operations:
// starting a contact on a plan and reacting to recorded provider events.
type Service struct {
	persistence persistence.Persistence
	engine      *Engine
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(store persistence.Persistence, engine *Engine, logger *slog.Logger) *Service {
	return &Service{
		persistence: store,
		engine:      engine,
		logger:      logger.With("module", "campaign_service"),
		now:         time.Now,
	}
}

// StartCampaign validates the plan, freezes it onto a new contact campaign
// and performs the start node's action.
func (s *Service) StartCampaign(ctx context.Context, tenantID, contactID, leadID string, rawPlan json.RawMessage) (*models.ContactCampaign, *TransitionResult, error) {
	campaign, err := models.NewContactCampaign(tenantID, contactID, leadID, rawPlan)
	if err != nil {
		return nil, nil, err
	}

	err = s.persistence.CreateContactCampaign(ctx, campaign)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.engine.EnterStartNode(ctx, campaign, s.now())
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "Started campaign",
		"campaign_id", campaign.ID,
		"tenant_id", tenantID,
		"contact_id", contactID,
		"start_node_id", campaign.CurrentNodeID)

	return campaign, result, nil
}

// HandleMessageEvent applies the first declared transition on the current
// node matching a recorded provider event. Returns nil without error when the
// event causes no transition: no matching rule, a closed within window, a
// completed campaign, or a lost optimistic race are all normal no-ops.
func (s *Service) HandleMessageEvent(ctx context.Context, job *events.MessageEventReceived) (*TransitionResult, error) {
	campaign, err := s.persistence.ContactCampaignByID(ctx, job.TenantID, job.CampaignID)
	if err != nil {
		return nil, err
	}

	if campaign.Completed() {
		s.logger.DebugContext(ctx, "Ignoring event for completed campaign",
			"campaign_id", campaign.ID,
			"event_type", job.EventType)

		return nil, nil
	}

	node, ok := campaign.CurrentNode()
	if !ok {
		return nil, &NodeError{Op: "HandleMessageEvent", CampaignID: campaign.ID, NodeID: campaign.CurrentNodeID, Err: ErrNodeNotFound}
	}

	transition, ok := SelectTransition(node, job.EventType, job.OccurredAt, campaign.EnteredNodeAt)
	if !ok {
		s.logger.DebugContext(ctx, "No transition for event",
			"campaign_id", campaign.ID,
			"node_id", node.ID,
			"event_type", job.EventType)

		return nil, nil
	}

	result, err := s.engine.Apply(ctx, campaign, transition, s.now(), job.MessageID, "")
	if err != nil {
		// A concurrent advance (another event or a timeout) moved the campaign
		// first; redelivery of this job against fresh state is harmless.
		if persistence.IsStaleCampaign(err) || persistence.IsDuplicateSend(err) {
			s.logger.InfoContext(ctx, "Event advance lost a concurrent race",
				"campaign_id", campaign.ID,
				"event_type", job.EventType,
				"error", err)

			return nil, nil
		}

		return nil, err
	}

	return result, nil
}

// CampaignByID exposes a campaign with its pending scheduled actions for the
// read API.
func (s *Service) CampaignByID(ctx context.Context, tenantID, campaignID string) (*models.ContactCampaign, []*models.ScheduledAction, error) {
	campaign, err := s.persistence.ContactCampaignByID(ctx, tenantID, campaignID)
	if err != nil {
		return nil, nil, err
	}

	pending, err := s.persistence.PendingScheduledActions(ctx, tenantID, campaignID)
	if err != nil {
		return nil, nil, err
	}

	return campaign, pending, nil
}
