package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/cadence/pkg/campaign"
	"github.com/dukex/cadence/pkg/eventbus"
	"github.com/dukex/cadence/pkg/events"
	"github.com/dukex/cadence/pkg/persistence"
	"github.com/dukex/cadence/pkg/protocol"
)

type WorkerManager struct {
	id              string
	logger          *slog.Logger
	persistence     persistence.Persistence
	eventBus        eventbus.EventBus
	timeoutService  *campaign.TimeoutService
	campaignService *campaign.Service
}

func NewWorkerManager(
	id string,
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	dispatcher protocol.Dispatcher,
	logger *slog.Logger,
) *WorkerManager {
	engine := campaign.NewEngine(store, dispatcher, logger)

	return &WorkerManager{
		id:              id,
		logger:          logger.With("module", "cadence-worker", "worker_id", id),
		persistence:     store,
		eventBus:        eventBus,
		timeoutService:  campaign.NewTimeoutService(store, engine, logger),
		campaignService: campaign.NewService(store, engine, logger),
	}
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager", "worker_id", w.id)

	err := w.eventBus.Handle(events.TimeoutDueEvent, w.handleTimeoutDue)
	if err != nil {
		return err
	}

	err = w.eventBus.Handle(events.MessageEventReceivedEvent, w.handleMessageEventReceived)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down worker...")

	return nil
}

func (w *WorkerManager) handleTimeoutDue(ctx context.Context, event any) error {
	timeoutEvent, ok := event.(*events.TimeoutDue)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for TimeoutDue")

		return nil
	}

	logger := w.logger.With(
		"campaign_id", timeoutEvent.CampaignID,
		"scheduled_action_id", timeoutEvent.ScheduledActionID,
		"event_type", timeoutEvent.EventType,
		"event_id", timeoutEvent.ID,
	)
	logger.InfoContext(ctx, "Processing timeout due event")

	result, err := w.timeoutService.ProcessTimeout(ctx, timeoutEvent)
	if err != nil {
		// A missing campaign never heals; retrying the job cannot help.
		if persistence.IsCampaignNotFound(err) {
			logger.WarnContext(ctx, "Campaign not found for timeout job", "error", err)

			return nil
		}

		logger.ErrorContext(ctx, "Failed to process timeout", "error", err)

		return err
	}

	if result.Skipped {
		logger.InfoContext(ctx, "Timeout skipped", "reason", result.Reason)

		return nil
	}

	return w.publishTransition(ctx, timeoutEvent.TenantID, timeoutEvent.CampaignID, result.Transition)
}

func (w *WorkerManager) handleMessageEventReceived(ctx context.Context, event any) error {
	receivedEvent, ok := event.(*events.MessageEventReceived)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for MessageEventReceived")

		return nil
	}

	logger := w.logger.With(
		"campaign_id", receivedEvent.CampaignID,
		"message_id", receivedEvent.MessageID,
		"event_type", receivedEvent.EventType,
		"event_id", receivedEvent.ID,
	)
	logger.InfoContext(ctx, "Processing message event")

	result, err := w.campaignService.HandleMessageEvent(ctx, receivedEvent)
	if err != nil {
		if persistence.IsCampaignNotFound(err) {
			logger.WarnContext(ctx, "Campaign not found for message event", "error", err)

			return nil
		}

		logger.ErrorContext(ctx, "Failed to handle message event", "error", err)

		return err
	}

	if result == nil {
		logger.DebugContext(ctx, "Message event caused no transition")

		return nil
	}

	return w.publishTransition(ctx, receivedEvent.TenantID, receivedEvent.CampaignID, result)
}

// publishTransition emits the lifecycle notifications for an applied
// transition. Publish failures are logged, not retried: the advance is
// already committed and redelivering the job would be skipped as stale.
func (w *WorkerManager) publishTransition(ctx context.Context, tenantID, campaignID string, result *campaign.TransitionResult) error {
	advanced := events.CampaignAdvanced{
		BaseEvent:    events.NewBaseEvent(events.CampaignAdvancedEvent, tenantID, campaignID),
		FromNodeID:   result.FromNodeID,
		ToNodeID:     result.ToNodeID,
		TransitionID: result.TransitionID,
		On:           result.On,
		NextAction:   result.NextAction,
	}
	advanced.WorkerID = w.id

	err := w.eventBus.Publish(ctx, campaignID, advanced)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to publish campaign advanced event", "error", err, "campaign_id", campaignID)
	}

	if result.Completed {
		completed := events.CampaignCompleted{
			BaseEvent:   events.NewBaseEvent(events.CampaignCompletedEvent, tenantID, campaignID),
			FinalNodeID: result.ToNodeID,
		}
		completed.WorkerID = w.id

		err = w.eventBus.Publish(ctx, campaignID, completed)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to publish campaign completed event", "error", err, "campaign_id", campaignID)
		}
	}

	return nil
}
