package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPlanJSON() []byte {
	return []byte(`{
		"version": 1,
		"timezone": "America/Sao_Paulo",
		"quietHours": {"start": "21:00", "end": "08:00"},
		"defaults": {"timers": {"no_open_after": "PT48H", "no_click_after": "PT72H"}},
		"startNodeId": "A",
		"nodes": [
			{
				"id": "A",
				"action": "send",
				"channel": "email",
				"subject": "Hello",
				"transitions": [
					{"on": "opened", "to": "B", "within": "PT48H"},
					{"on": "no_open", "to": "C", "after": "PT48H"}
				]
			},
			{
				"id": "B",
				"action": "send",
				"channel": "email",
				"transitions": [
					{"on": "no_click", "to": "C"}
				]
			},
			{"id": "C", "action": "stop"}
		]
	}`)
}

func TestParsePlan(t *testing.T) {
	plan, err := ParsePlan(validPlanJSON())
	require.NoError(t, err)

	assert.Equal(t, 1, plan.Version)
	assert.Equal(t, "A", plan.StartNodeID)
	assert.Len(t, plan.Nodes, 3)

	node, ok := plan.NodeByID("A")
	require.True(t, ok)
	assert.Equal(t, NodeActionSend, node.Action)
	assert.Len(t, node.Transitions, 2)
}

func TestParsePlan_RejectsMalformedJSON(t *testing.T) {
	_, err := ParsePlan([]byte(`{"version": 1`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestParsePlan_RejectsMissingFields(t *testing.T) {
	_, err := ParsePlan([]byte(`{"version": 1, "timezone": "UTC"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestPlanValidate_UnknownStartNode(t *testing.T) {
	_, err := ParsePlan([]byte(`{
		"version": 1, "timezone": "UTC", "startNodeId": "missing",
		"nodes": [{"id": "A", "action": "stop"}]
	}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPlan)
	assert.Contains(t, err.Error(), "start node")
}

func TestPlanValidate_UnknownTransitionTarget(t *testing.T) {
	_, err := ParsePlan([]byte(`{
		"version": 1, "timezone": "UTC", "startNodeId": "A",
		"nodes": [
			{"id": "A", "action": "send", "transitions": [{"on": "opened", "to": "ghost"}]}
		]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown node")
}

func TestPlanValidate_DuplicateEventRule(t *testing.T) {
	_, err := ParsePlan([]byte(`{
		"version": 1, "timezone": "UTC", "startNodeId": "A",
		"nodes": [
			{"id": "A", "action": "send", "transitions": [
				{"on": "opened", "to": "B"},
				{"on": "opened", "to": "C"}
			]},
			{"id": "B", "action": "stop"},
			{"id": "C", "action": "stop"}
		]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple transitions")
}

func TestPlanValidate_StopNodeWithTransitions(t *testing.T) {
	_, err := ParsePlan([]byte(`{
		"version": 1, "timezone": "UTC", "startNodeId": "A",
		"nodes": [
			{"id": "A", "action": "stop", "transitions": [{"on": "opened", "to": "A"}]}
		]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop node")
}

func TestPlanValidate_BothWithinAndAfter(t *testing.T) {
	_, err := ParsePlan([]byte(`{
		"version": 1, "timezone": "UTC", "startNodeId": "A",
		"nodes": [
			{"id": "A", "action": "send", "transitions": [
				{"on": "opened", "to": "B", "within": "PT1H", "after": "PT1H"}
			]},
			{"id": "B", "action": "stop"}
		]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both within and after")
}

func TestPlanValidate_TimeoutRuleWithoutDelay(t *testing.T) {
	_, err := ParsePlan([]byte(`{
		"version": 1, "timezone": "UTC", "startNodeId": "A",
		"nodes": [
			{"id": "A", "action": "send", "transitions": [{"on": "no_open", "to": "B"}]},
			{"id": "B", "action": "stop"}
		]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no default timer")
}

func TestPlanValidate_TimeoutRuleUsesDefaultTimer(t *testing.T) {
	plan, err := ParsePlan([]byte(`{
		"version": 1, "timezone": "UTC", "startNodeId": "A",
		"defaults": {"timers": {"no_open_after": "PT48H"}},
		"nodes": [
			{"id": "A", "action": "send", "transitions": [{"on": "no_open", "to": "B"}]},
			{"id": "B", "action": "stop"}
		]
	}`))
	require.NoError(t, err)

	node, ok := plan.NodeByID("A")
	require.True(t, ok)
	assert.Equal(t, "PT48H", node.Transitions[0].EffectiveAfter(plan))
}

func TestPlanValidate_BadTimezone(t *testing.T) {
	_, err := ParsePlan([]byte(`{
		"version": 1, "timezone": "Mars/Olympus", "startNodeId": "A",
		"nodes": [{"id": "A", "action": "stop"}]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timezone")
}

func TestPlanValidate_EmptyQuietHoursWindow(t *testing.T) {
	_, err := ParsePlan([]byte(`{
		"version": 1, "timezone": "UTC", "startNodeId": "A",
		"quietHours": {"start": "08:00", "end": "08:00"},
		"nodes": [{"id": "A", "action": "stop"}]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quiet hours")
}

func TestEventTypeSupersededBy(t *testing.T) {
	assert.Equal(t, []EventType{EventOpened, EventClicked}, EventNoOpen.SupersededBy())
	assert.Equal(t, []EventType{EventClicked}, EventNoClick.SupersededBy())
	assert.Nil(t, EventOpened.SupersededBy())
}

func TestTransitionIsTimeoutClass(t *testing.T) {
	assert.True(t, Transition{On: EventNoOpen, After: "PT48H"}.IsTimeoutClass())
	assert.True(t, Transition{On: EventNoClick}.IsTimeoutClass())

	// An after on a real-event rule never produces a delayed job.
	assert.False(t, Transition{On: EventDelivered, After: "PT0S"}.IsTimeoutClass())
}

func TestNewContactCampaign(t *testing.T) {
	campaign, err := NewContactCampaign("t1", "contact-1", "lead-1", validPlanJSON())
	require.NoError(t, err)

	assert.NotEmpty(t, campaign.ID)
	assert.Equal(t, "A", campaign.CurrentNodeID)
	assert.Equal(t, int64(1), campaign.Version)
	assert.False(t, campaign.Completed())

	node, ok := campaign.CurrentNode()
	require.True(t, ok)
	assert.Equal(t, "A", node.ID)
}

func TestNewContactCampaign_InvalidPlan(t *testing.T) {
	_, err := NewContactCampaign("t1", "contact-1", "", []byte(`{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPlan)
}
