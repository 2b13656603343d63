package campaign

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/cadence/pkg/events"
	"github.com/dukex/cadence/pkg/mocks"
	"github.com/dukex/cadence/pkg/models"
	"github.com/dukex/cadence/pkg/persistence"
	"github.com/dukex/cadence/pkg/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type timeoutFixture struct {
	store      *memory.Persistence
	dispatcher *mocks.MockDispatcher
	service    *TimeoutService
	campaign   *models.ContactCampaign
	messageID  string
	actionID   string
}

// newTimeoutFixture starts a campaign on the test plan and performs the start
// node's send, leaving one pending no_open check behind.
func newTimeoutFixture(t *testing.T) *timeoutFixture {
	t.Helper()

	ctx := context.Background()
	store := memory.NewPersistence()
	dispatcher := &mocks.MockDispatcher{}
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return("prov-1", nil)

	logger := testLogger()
	engine := NewEngine(store, dispatcher, logger)

	campaign := createTestCampaign(t, store)

	result, err := engine.EnterStartNode(ctx, campaign, time.Now())
	require.NoError(t, err)

	pending, err := store.PendingScheduledActions(ctx, "t1", campaign.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	return &timeoutFixture{
		store:      store,
		dispatcher: dispatcher,
		service:    NewTimeoutService(store, engine, logger),
		campaign:   campaign,
		messageID:  result.MessageID,
		actionID:   pending[0].ID,
	}
}

func (f *timeoutFixture) timeoutJob(eventType models.EventType) *events.TimeoutDue {
	return &events.TimeoutDue{
		BaseEvent:         events.NewBaseEvent(events.TimeoutDueEvent, "t1", f.campaign.ID),
		ScheduledActionID: f.actionID,
		NodeID:            "A",
		MessageID:         f.messageID,
		EventType:         eventType,
	}
}

func TestProcessTimeout_AdvancesOnElapsedTimeout(t *testing.T) {
	f := newTimeoutFixture(t)
	ctx := context.Background()

	result, err := f.service.ProcessTimeout(ctx, f.timeoutJob(models.EventNoOpen))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.False(t, result.Skipped)
	require.NotNil(t, result.Transition)
	assert.Equal(t, "C", result.Transition.ToNodeID)
	assert.True(t, result.Transition.Completed)

	reloaded, err := f.store.ContactCampaignByID(ctx, "t1", f.campaign.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Completed())

	// The fired action is consumed in the same transaction.
	pending, err := f.store.PendingScheduledActions(ctx, "t1", f.campaign.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProcessTimeout_RealEventSupersedes(t *testing.T) {
	f := newTimeoutFixture(t)
	ctx := context.Background()

	opened := models.NewMessageEvent("t1", f.messageID, models.EventOpened, time.Now())
	require.NoError(t, f.store.CreateMessageEvent(ctx, opened))

	result, err := f.service.ProcessTimeout(ctx, f.timeoutJob(models.EventNoOpen))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.Skipped)
	assert.Equal(t, ReasonRealEventExists, result.Reason)

	// No synthetic transition was fabricated.
	reloaded, err := f.store.ContactCampaignByID(ctx, "t1", f.campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", reloaded.CurrentNodeID)
	assert.False(t, reloaded.Completed())

	pending, err := f.store.PendingScheduledActions(ctx, "t1", f.campaign.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProcessTimeout_ClickSupersedesNoOpen(t *testing.T) {
	f := newTimeoutFixture(t)
	ctx := context.Background()

	clicked := models.NewMessageEvent("t1", f.messageID, models.EventClicked, time.Now())
	require.NoError(t, f.store.CreateMessageEvent(ctx, clicked))

	result, err := f.service.ProcessTimeout(ctx, f.timeoutJob(models.EventNoOpen))
	require.NoError(t, err)

	assert.True(t, result.Skipped)
	assert.Equal(t, ReasonRealEventExists, result.Reason)
}

func TestProcessTimeout_StalePosition(t *testing.T) {
	f := newTimeoutFixture(t)
	ctx := context.Background()

	job := f.timeoutJob(models.EventNoOpen)
	job.NodeID = "B"

	result, err := f.service.ProcessTimeout(ctx, job)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.Skipped)
	assert.Equal(t, ReasonStalePosition, result.Reason)
}

func TestProcessTimeout_RedeliveryAfterCompletionIsStale(t *testing.T) {
	f := newTimeoutFixture(t)
	ctx := context.Background()

	job := f.timeoutJob(models.EventNoOpen)

	first, err := f.service.ProcessTimeout(ctx, job)
	require.NoError(t, err)
	require.True(t, first.Success)
	require.False(t, first.Skipped)

	// At-least-once delivery: the same job again is a harmless no-op.
	second, err := f.service.ProcessTimeout(ctx, job)
	require.NoError(t, err)

	assert.True(t, second.Success)
	assert.True(t, second.Skipped)
	assert.Equal(t, ReasonStalePosition, second.Reason)
}

func TestProcessTimeout_NoMatchingTimeoutTransition(t *testing.T) {
	f := newTimeoutFixture(t)
	ctx := context.Background()

	result, err := f.service.ProcessTimeout(ctx, f.timeoutJob(models.EventNoClick))
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.True(t, result.Skipped)
	assert.Equal(t, ReasonNoTransition, result.Reason)
}

func TestProcessTimeout_CampaignNotFound(t *testing.T) {
	f := newTimeoutFixture(t)
	ctx := context.Background()

	job := f.timeoutJob(models.EventNoOpen)
	job.CampaignID = "missing"

	_, err := f.service.ProcessTimeout(ctx, job)
	require.Error(t, err)
	assert.True(t, persistence.IsCampaignNotFound(err))
}

func TestProcessTimeout_EndToEndThroughClaim(t *testing.T) {
	f := newTimeoutFixture(t)
	ctx := context.Background()

	// Nothing is due before the delay elapses.
	early, err := f.store.ClaimDueScheduledActions(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, early)

	due, err := f.store.ClaimDueScheduledActions(ctx, time.Now().Add(11*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	job := &events.TimeoutDue{
		BaseEvent:         events.NewBaseEvent(events.TimeoutDueEvent, due[0].TenantID, due[0].CampaignID),
		ScheduledActionID: due[0].ID,
		NodeID:            due[0].NodeID,
		MessageID:         due[0].Payload.MessageID,
		EventType:         due[0].Payload.EventType,
	}

	result, err := f.service.ProcessTimeout(ctx, job)
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.NotNil(t, result.Transition)
	assert.True(t, result.Transition.Completed)
}
