package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/cadence/pkg/events"
	"github.com/dukex/cadence/pkg/persistence"
)

// Skip reasons reported by ProcessTimeout. Skips are successful no-ops: the
// job was valid when scheduled but the world moved on before it fired.
const (
	ReasonRealEventExists = "real_event_exists"
	ReasonStalePosition   = "stale_position"
	ReasonNoTransition    = "no_matching_timeout_transition"
	ReasonDuplicateSend   = "duplicate_send"
)

// TimeoutResult is the outcome of one timeout job.
type TimeoutResult struct {
	Success    bool              `json:"success"`
	Skipped    bool              `json:"skipped"`
	Reason     string            `json:"reason,omitempty"`
	Transition *TransitionResult `json:"transition,omitempty"`
}

// TimeoutService executes due timeout jobs. Delivery is at-least-once and may
// race real provider events, so every job is re-validated against current
// state before any transition is applied.
type TimeoutService struct {
	persistence persistence.Persistence
	engine      *Engine
	logger      *slog.Logger
	now         func() time.Time
}

func NewTimeoutService(store persistence.Persistence, engine *Engine, logger *slog.Logger) *TimeoutService {
	return &TimeoutService{
		persistence: store,
		engine:      engine,
		logger:      logger.With("module", "timeout_service"),
		now:         time.Now,
	}
}

// ProcessTimeout validates and applies one due timeout check. The order
// matters: the supersession check runs before the campaign is even loaded, so
// a real event recorded at any point before execution wins the race.
func (s *TimeoutService) ProcessTimeout(ctx context.Context, job *events.TimeoutDue) (*TimeoutResult, error) {
	superseding := job.EventType.SupersededBy()

	if job.MessageID != "" && len(superseding) > 0 {
		exists, err := s.persistence.MessageEventExists(ctx, job.TenantID, job.MessageID, superseding)
		if err != nil {
			return nil, fmt.Errorf("supersession check for action %s: %w", job.ScheduledActionID, err)
		}

		if exists {
			s.consumeAction(ctx, job.ScheduledActionID)

			return &TimeoutResult{Success: true, Skipped: true, Reason: ReasonRealEventExists}, nil
		}
	}

	campaign, err := s.persistence.ContactCampaignByID(ctx, job.TenantID, job.CampaignID)
	if err != nil {
		return nil, err
	}

	// The position columns are the sole authority. A completed campaign or a
	// position past the job's node means this check expired in flight.
	if campaign.Completed() || campaign.CurrentNodeID != job.NodeID {
		s.consumeAction(ctx, job.ScheduledActionID)

		return &TimeoutResult{Success: true, Skipped: true, Reason: ReasonStalePosition}, nil
	}

	node, ok := campaign.CurrentNode()
	if !ok {
		return nil, &NodeError{Op: "ProcessTimeout", CampaignID: campaign.ID, NodeID: campaign.CurrentNodeID, Err: ErrNodeNotFound}
	}

	transition, ok := SelectTimeoutTransition(node, job.EventType)
	if !ok {
		s.consumeAction(ctx, job.ScheduledActionID)

		return &TimeoutResult{Success: false, Skipped: true, Reason: ReasonNoTransition}, nil
	}

	result, err := s.engine.Apply(ctx, campaign, transition, s.now(), job.MessageID, job.ScheduledActionID)
	if err != nil {
		// Lost an optimistic race with a concurrent real event: that advance
		// consumed the position, so this timeout is stale, not failed.
		if persistence.IsStaleCampaign(err) {
			return &TimeoutResult{Success: true, Skipped: true, Reason: ReasonStalePosition}, nil
		}

		if persistence.IsDuplicateSend(err) {
			return &TimeoutResult{Success: true, Skipped: true, Reason: ReasonDuplicateSend}, nil
		}

		return nil, err
	}

	return &TimeoutResult{Success: true, Transition: result}, nil
}

// consumeAction marks the job's scheduled action executed on skip paths.
// Best effort: if it fails the action is redelivered and skipped again.
func (s *TimeoutService) consumeAction(ctx context.Context, actionID string) {
	if actionID == "" {
		return
	}

	err := s.persistence.MarkScheduledActionExecuted(ctx, actionID, s.now().UTC())
	if err != nil && !persistence.IsActionNotFound(err) {
		s.logger.WarnContext(ctx, "Failed to mark skipped action executed", "scheduled_action_id", actionID, "error", err)
	}
}
