package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/cadence/pkg/models"
	"github.com/dukex/cadence/pkg/persistence"
	"github.com/dukex/cadence/pkg/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlanJSON() []byte {
	return []byte(`{
		"version": 1, "timezone": "UTC", "startNodeId": "A",
		"defaults": {"timers": {"no_open_after": "PT10M"}},
		"nodes": [
			{"id": "A", "action": "send", "channel": "email", "transitions": [
				{"on": "no_open", "to": "B"}
			]},
			{"id": "B", "action": "stop"}
		]
	}`)
}

func createCampaign(ctx context.Context, t *testing.T, store *memory.Persistence) *models.ContactCampaign {
	t.Helper()

	campaign, err := models.NewContactCampaign("t1", "contact-1", "", testPlanJSON())
	require.NoError(t, err)
	require.NoError(t, store.CreateContactCampaign(ctx, campaign))

	return campaign
}

func TestAdvanceCampaign_VersionCheck(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPersistence()
	campaign := createCampaign(ctx, t, store)

	campaign.CurrentNodeID = "B"

	err := store.AdvanceCampaign(ctx, &persistence.CampaignAdvance{
		Campaign:        campaign,
		ExpectedVersion: 1,
	})
	require.NoError(t, err)

	err = store.AdvanceCampaign(ctx, &persistence.CampaignAdvance{
		Campaign:        campaign,
		ExpectedVersion: 1,
	})
	require.Error(t, err)
	assert.True(t, persistence.IsStaleCampaign(err))
}

func TestAdvanceCampaign_DedupeKey(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPersistence()
	campaign := createCampaign(ctx, t, store)

	node, ok := campaign.Plan.NodeByID("A")
	require.True(t, ok)

	first := models.NewOutboundMessage(campaign, node, time.Now())

	err := store.AdvanceCampaign(ctx, &persistence.CampaignAdvance{
		Campaign:        campaign,
		ExpectedVersion: 1,
		Message:         first,
	})
	require.NoError(t, err)

	second := models.NewOutboundMessage(campaign, node, time.Now())

	err = store.AdvanceCampaign(ctx, &persistence.CampaignAdvance{
		Campaign:        campaign,
		ExpectedVersion: 2,
		Message:         second,
	})
	require.Error(t, err)
	assert.True(t, persistence.IsDuplicateSend(err))
}

func TestClaimDueScheduledActions_Exclusive(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPersistence()
	campaign := createCampaign(ctx, t, store)

	now := time.Now().UTC()
	action := models.NewScheduledAction("t1", campaign.ID, "A", "msg-1", models.EventNoOpen, now.Add(-time.Minute))

	err := store.AdvanceCampaign(ctx, &persistence.CampaignAdvance{
		Campaign:        campaign,
		ExpectedVersion: 1,
		Actions:         []*models.ScheduledAction{action},
	})
	require.NoError(t, err)

	claimed, err := store.ClaimDueScheduledActions(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	again, err := store.ClaimDueScheduledActions(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	released, err := store.ReleaseStaleClaims(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	reclaimed, err := store.ClaimDueScheduledActions(ctx, now, 10)
	require.NoError(t, err)
	assert.Len(t, reclaimed, 1)
}

func TestMessageEventExists_FiltersByTypeAndTenant(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPersistence()

	event := models.NewMessageEvent("t1", "msg-1", models.EventClicked, time.Now())
	require.NoError(t, store.CreateMessageEvent(ctx, event))

	exists, err := store.MessageEventExists(ctx, "t1", "msg-1", []models.EventType{models.EventClicked})
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.MessageEventExists(ctx, "t1", "msg-1", []models.EventType{models.EventOpened})
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = store.MessageEventExists(ctx, "t2", "msg-1", []models.EventType{models.EventClicked})
	require.NoError(t, err)
	assert.False(t, exists)
}
