package campaign

import (
	"testing"
	"time"

	"github.com/dukex/cadence/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextAllowedSendTime_NoQuietHours(t *testing.T) {
	plan := &models.CampaignPlan{Timezone: "UTC"}
	now := time.Date(2026, 3, 10, 22, 30, 0, 0, time.UTC)

	got, err := NextAllowedSendTime(plan, now)
	require.NoError(t, err)
	assert.Equal(t, now, got)
}

func TestNextAllowedSendTime_SameDayWindow(t *testing.T) {
	plan := &models.CampaignPlan{
		Timezone:   "UTC",
		QuietHours: &models.QuietHours{Start: "12:00", End: "14:00"},
	}

	inside := time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)
	got, err := NextAllowedSendTime(plan, inside)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)))

	before := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)
	got, err = NextAllowedSendTime(plan, before)
	require.NoError(t, err)
	assert.Equal(t, before, got)

	// The window end itself is allowed.
	atEnd := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	got, err = NextAllowedSendTime(plan, atEnd)
	require.NoError(t, err)
	assert.Equal(t, atEnd, got)
}

func TestNextAllowedSendTime_WrappingWindow(t *testing.T) {
	plan := &models.CampaignPlan{
		Timezone:   "UTC",
		QuietHours: &models.QuietHours{Start: "21:00", End: "08:00"},
	}

	lateEvening := time.Date(2026, 3, 10, 22, 30, 0, 0, time.UTC)
	got, err := NextAllowedSendTime(plan, lateEvening)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)))

	earlyMorning := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	got, err = NextAllowedSendTime(plan, earlyMorning)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)))

	midday := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	got, err = NextAllowedSendTime(plan, midday)
	require.NoError(t, err)
	assert.Equal(t, midday, got)
}

func TestNextAllowedSendTime_PlanTimezone(t *testing.T) {
	plan := &models.CampaignPlan{
		Timezone:   "America/Sao_Paulo",
		QuietHours: &models.QuietHours{Start: "21:00", End: "08:00"},
	}

	// 01:00 UTC is 22:00 in Sao Paulo (UTC-3), inside the window.
	utcNight := time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)

	got, err := NextAllowedSendTime(plan, utcNight)
	require.NoError(t, err)

	loc, locErr := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, locErr)
	assert.True(t, got.Equal(time.Date(2026, 3, 10, 8, 0, 0, 0, loc)))
}

func TestNextAllowedSendTime_UnknownTimezone(t *testing.T) {
	plan := &models.CampaignPlan{
		Timezone:   "Mars/Olympus",
		QuietHours: &models.QuietHours{Start: "21:00", End: "08:00"},
	}

	_, err := NextAllowedSendTime(plan, time.Now())
	require.Error(t, err)
}
