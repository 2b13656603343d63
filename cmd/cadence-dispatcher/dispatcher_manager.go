package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/cadence/pkg/eventbus"
	"github.com/dukex/cadence/pkg/events"
	"github.com/dukex/cadence/pkg/models"
	"github.com/dukex/cadence/pkg/persistence"
)

// DispatcherManager polls the scheduled action store and publishes due
// timeout jobs. Claims are exclusive per row, so running several dispatchers
// is safe; a claim whose publish never happened is requeued after the claim
// timeout.
type DispatcherManager struct {
	id           string
	logger       *slog.Logger
	persistence  persistence.Persistence
	eventBus     eventbus.EventBus
	pollInterval time.Duration
	batchSize    int
	claimTimeout time.Duration
}

func NewDispatcherManager(
	id string,
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	pollInterval time.Duration,
	batchSize int,
	claimTimeout time.Duration,
) *DispatcherManager {
	return &DispatcherManager{
		id:           id,
		logger:       logger.With("module", "cadence-dispatcher", "dispatcher_id", id),
		persistence:  store,
		eventBus:     eventBus,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		claimTimeout: claimTimeout,
	}
}

func (dm *DispatcherManager) Start(ctx context.Context) {
	dmCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	dm.logger.InfoContext(dmCtx, "Starting dispatcher manager",
		"poll_interval", dm.pollInterval,
		"batch_size", dm.batchSize)

	dm.signals(dmCtx, cancel)
	dm.run(dmCtx)
	dm.logger.InfoContext(dmCtx, "Dispatcher manager stopped")
}

func (dm *DispatcherManager) signals(ctx context.Context, cancel context.CancelFunc) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		dm.logger.InfoContext(ctx, "Received signal", "signal", sig)
		cancel()
	}()
}

func (dm *DispatcherManager) run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dm.poll(ctx)
		}
	}
}

func (dm *DispatcherManager) poll(ctx context.Context) {
	now := time.Now().UTC()

	released, err := dm.persistence.ReleaseStaleClaims(ctx, now.Add(-dm.claimTimeout))
	if err != nil {
		dm.logger.ErrorContext(ctx, "Failed to release stale claims", "error", err)
	} else if released > 0 {
		dm.logger.WarnContext(ctx, "Requeued stale claimed actions", "count", released)
	}

	actions, err := dm.persistence.ClaimDueScheduledActions(ctx, now, dm.batchSize)
	if err != nil {
		dm.logger.ErrorContext(ctx, "Failed to claim due scheduled actions", "error", err)

		return
	}

	if len(actions) == 0 {
		return
	}

	dm.logger.InfoContext(ctx, "Claimed due scheduled actions", "count", len(actions))

	for _, action := range actions {
		err := dm.publishTimeout(ctx, action)
		if err != nil {
			// The claim stays in place and expires into a requeue, so the
			// job is not lost.
			dm.logger.ErrorContext(ctx, "Failed to publish timeout job",
				"error", err,
				"scheduled_action_id", action.ID,
				"campaign_id", action.CampaignID)
		}
	}
}

func (dm *DispatcherManager) publishTimeout(ctx context.Context, action *models.ScheduledAction) error {
	event := events.TimeoutDue{
		BaseEvent:         events.NewBaseEvent(events.TimeoutDueEvent, action.TenantID, action.CampaignID),
		ScheduledActionID: action.ID,
		NodeID:            action.NodeID,
		MessageID:         action.Payload.MessageID,
		EventType:         action.Payload.EventType,
		OriginalJobID:     action.Payload.OriginalJobID,
	}
	event.WorkerID = dm.id

	return dm.eventBus.Publish(ctx, action.CampaignID, event)
}
