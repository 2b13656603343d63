package eventbus_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/cadence/pkg/channels/gochannel"
	"github.com/dukex/cadence/pkg/eventbus"
	"github.com/dukex/cadence/pkg/events"
	"github.com/dukex/cadence/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	logger := watermill.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))

	pub, sub, err := gochannel.CreateTestChannel(logger)
	require.NoError(t, err)

	return eventbus.NewWatermillEventBus(pub, sub)
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *events.TimeoutDue, 1)

	err := bus.Handle(events.TimeoutDueEvent, func(ctx context.Context, event any) error {
		timeoutEvent, ok := event.(*events.TimeoutDue)
		require.True(t, ok)

		received <- timeoutEvent

		return nil
	})
	require.NoError(t, err)

	err = bus.Subscribe(ctx)
	require.NoError(t, err)

	sent := events.TimeoutDue{
		BaseEvent:         events.NewBaseEvent(events.TimeoutDueEvent, "t1", "campaign-1"),
		ScheduledActionID: "action-1",
		NodeID:            "A",
		MessageID:         "msg-1",
		EventType:         models.EventNoOpen,
	}

	err = bus.Publish(ctx, "campaign-1", sent)
	require.NoError(t, err)

	select {
	case got := <-received:
		assert.Equal(t, "action-1", got.ScheduledActionID)
		assert.Equal(t, "campaign-1", got.CampaignID)
		assert.Equal(t, models.EventNoOpen, got.EventType)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_RoutesByEventType(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	timeouts := make(chan any, 1)
	messageEvents := make(chan any, 1)

	require.NoError(t, bus.Handle(events.TimeoutDueEvent, func(ctx context.Context, event any) error {
		timeouts <- event

		return nil
	}))
	require.NoError(t, bus.Handle(events.MessageEventReceivedEvent, func(ctx context.Context, event any) error {
		messageEvents <- event

		return nil
	}))

	require.NoError(t, bus.Subscribe(ctx))

	sent := events.MessageEventReceived{
		BaseEvent: events.NewBaseEvent(events.MessageEventReceivedEvent, "t1", "campaign-1"),
		MessageID: "msg-1",
		EventType: models.EventOpened,
	}

	require.NoError(t, bus.Publish(ctx, "campaign-1", sent))

	select {
	case got := <-messageEvents:
		receivedEvent, ok := got.(*events.MessageEventReceived)
		require.True(t, ok)
		assert.Equal(t, models.EventOpened, receivedEvent.EventType)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	select {
	case <-timeouts:
		t.Fatal("timeout handler received a message event")
	default:
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
