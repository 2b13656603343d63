package campaign

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/cadence/pkg/models"
	"github.com/dukex/cadence/pkg/persistence"
	"github.com/dukex/cadence/pkg/protocol"
)

// Engine decides and applies transitions. Decisions are pure functions of
// (plan, position, event); effects are dispatched through the provider
// abstraction and committed in a single atomic advance, so a contact can
// never be half-moved between nodes.
type Engine struct {
	persistence persistence.Persistence
	dispatcher  protocol.Dispatcher
	scheduler   *TimeoutScheduler
	logger      *slog.Logger
}

func NewEngine(store persistence.Persistence, dispatcher protocol.Dispatcher, logger *slog.Logger) *Engine {
	return &Engine{
		persistence: store,
		dispatcher:  dispatcher,
		scheduler:   NewTimeoutScheduler(),
		logger:      logger.With("module", "campaign_engine"),
	}
}

// TransitionResult describes one applied transition.
type TransitionResult struct {
	FromNodeID   string            `json:"from_node_id"`
	ToNodeID     string            `json:"to_node_id"`
	TransitionID string            `json:"transition_id,omitempty"`
	On           models.EventType  `json:"on"`
	NextAction   models.NodeAction `json:"next_action"`
	Completed    bool              `json:"completed"`
	MessageID    string            `json:"message_id,omitempty"`
	SendAt       time.Time         `json:"send_at,omitzero"`
	Scheduled    int               `json:"scheduled"`
}

// SelectTransition returns the first declared transition matching the event.
// Plans are authored, so declaration order is the documented tie-break. A
// rule with a within window only matches while the window is open relative to
// entering the node.
func SelectTransition(node *models.Node, eventType models.EventType, occurredAt, enteredNodeAt time.Time) (*models.Transition, bool) {
	for i := range node.Transitions {
		transition := &node.Transitions[i]

		if transition.On != eventType {
			continue
		}

		if transition.Within != "" {
			window, err := models.ParseDuration(transition.Within)
			if err != nil || occurredAt.Sub(enteredNodeAt) > window {
				continue
			}
		}

		return transition, true
	}

	return nil, false
}

// SelectTimeoutTransition returns the first declared timeout-class transition
// for the given timeout event, if any.
func SelectTimeoutTransition(node *models.Node, eventType models.EventType) (*models.Transition, bool) {
	for i := range node.Transitions {
		transition := &node.Transitions[i]

		if transition.On == eventType && transition.IsTimeoutClass() {
			return transition, true
		}
	}

	return nil, false
}

// Apply moves the campaign across the given transition and performs the
// target node's action. messageID is the outbound message the triggering
// event belongs to; executedActionID, when set, consumes the scheduled action
// that fired in the same transaction.
func (e *Engine) Apply(ctx context.Context, campaign *models.ContactCampaign, transition *models.Transition, now time.Time, messageID, executedActionID string) (*TransitionResult, error) {
	target, ok := campaign.Plan.NodeByID(transition.To)
	if !ok {
		return nil, &NodeError{Op: "Apply", CampaignID: campaign.ID, NodeID: transition.To, Err: ErrNodeNotFound}
	}

	fromNodeID := campaign.CurrentNodeID
	expectedVersion := campaign.Version

	campaign.CurrentNodeID = target.ID
	campaign.EnteredNodeAt = now.UTC()

	result, err := e.enterNode(ctx, campaign, target, expectedVersion, now, messageID, executedActionID)
	if err != nil {
		return nil, err
	}

	result.FromNodeID = fromNodeID
	result.TransitionID = transition.ID
	result.On = transition.On

	e.logger.InfoContext(ctx, "Applied transition",
		"campaign_id", campaign.ID,
		"from_node_id", fromNodeID,
		"to_node_id", target.ID,
		"on", transition.On,
		"next_action", target.Action)

	return result, nil
}

// EnterStartNode performs the start node's action for a freshly created
// campaign: dispatch and schedule for send, schedule for wait.
func (e *Engine) EnterStartNode(ctx context.Context, campaign *models.ContactCampaign, now time.Time) (*TransitionResult, error) {
	node, ok := campaign.CurrentNode()
	if !ok {
		return nil, &NodeError{Op: "EnterStartNode", CampaignID: campaign.ID, NodeID: campaign.CurrentNodeID, Err: ErrNodeNotFound}
	}

	campaign.EnteredNodeAt = now.UTC()

	result, err := e.enterNode(ctx, campaign, node, campaign.Version, now, "", "")
	if err != nil {
		return nil, err
	}

	result.FromNodeID = node.ID

	return result, nil
}

func (e *Engine) enterNode(ctx context.Context, campaign *models.ContactCampaign, node *models.Node, expectedVersion int64, now time.Time, messageID, executedActionID string) (*TransitionResult, error) {
	advance := &persistence.CampaignAdvance{
		Campaign:         campaign,
		ExpectedVersion:  expectedVersion,
		ExecutedActionID: executedActionID,
	}

	result := &TransitionResult{
		ToNodeID:   node.ID,
		NextAction: node.Action,
	}

	switch node.Action {
	case models.NodeActionSend:
		message, actions, err := e.prepareSend(ctx, campaign, node, now)
		if err != nil {
			return nil, err
		}

		advance.Message = message
		advance.Actions = actions
		result.MessageID = message.ID
		result.SendAt = message.SendAt
		result.Scheduled = len(actions)

	case models.NodeActionWait:
		base := nodeActionTime(node, now)

		actions, err := e.scheduler.BuildActions(campaign, node, messageID, base)
		if err != nil {
			return nil, err
		}

		advance.Actions = actions
		result.Scheduled = len(actions)

	case models.NodeActionStop:
		completedAt := now.UTC()
		campaign.CompletedAt = &completedAt
		result.Completed = true
	}

	err := e.persistence.AdvanceCampaign(ctx, advance)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// prepareSend resolves the effective send time, dispatches through the
// provider abstraction and builds the bookkeeping that must commit together.
func (e *Engine) prepareSend(ctx context.Context, campaign *models.ContactCampaign, node *models.Node, now time.Time) (*models.OutboundMessage, []*models.ScheduledAction, error) {
	sendAt, err := NextAllowedSendTime(campaign.Plan, nodeActionTime(node, now))
	if err != nil {
		return nil, nil, err
	}

	message := models.NewOutboundMessage(campaign, node, sendAt)

	providerMessageID, err := e.dispatcher.Dispatch(ctx, protocol.DispatchRequest{
		TenantID:  campaign.TenantID,
		ContactID: campaign.ContactID,
		LeadID:    campaign.LeadID,
		Message:   message,
		Node:      node,
		SendAt:    sendAt,
	})
	if err != nil {
		return nil, nil, err
	}

	message.ProviderMessageID = providerMessageID
	submittedAt := now.UTC()
	message.SentAt = &submittedAt

	// Timeout windows anchor at the effective send time, so a quiet-hours
	// deferral shifts them with the message.
	actions, err := e.scheduler.BuildActions(campaign, node, message.ID, sendAt)
	if err != nil {
		return nil, nil, err
	}

	return message, actions, nil
}

// nodeActionTime applies the node's own schedule.delay. Delays are validated
// at plan load time.
func nodeActionTime(node *models.Node, now time.Time) time.Time {
	if node.Schedule == nil {
		return now
	}

	delay, err := models.ParseDuration(node.Schedule.Delay)
	if err != nil {
		return now
	}

	return now.Add(delay)
}
