package mocks

import (
	"context"
	"time"

	"github.com/dukex/cadence/pkg/models"
	"github.com/dukex/cadence/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) CreateContactCampaign(ctx context.Context, campaign *models.ContactCampaign) error {
	args := m.Called(ctx, campaign)

	return args.Error(0)
}

func (m *MockPersistence) ContactCampaignByID(ctx context.Context, tenantID, campaignID string) (*models.ContactCampaign, error) {
	args := m.Called(ctx, tenantID, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ContactCampaign), args.Error(1)
}

func (m *MockPersistence) AdvanceCampaign(ctx context.Context, advance *persistence.CampaignAdvance) error {
	args := m.Called(ctx, advance)

	return args.Error(0)
}

func (m *MockPersistence) CreateMessageEvent(ctx context.Context, event *models.MessageEvent) error {
	args := m.Called(ctx, event)

	return args.Error(0)
}

func (m *MockPersistence) MessageEventExists(ctx context.Context, tenantID, messageID string, types []models.EventType) (bool, error) {
	args := m.Called(ctx, tenantID, messageID, types)

	return args.Bool(0), args.Error(1)
}

func (m *MockPersistence) ClaimDueScheduledActions(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledAction, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.ScheduledAction), args.Error(1)
}

func (m *MockPersistence) MarkScheduledActionExecuted(ctx context.Context, actionID string, executedAt time.Time) error {
	args := m.Called(ctx, actionID, executedAt)

	return args.Error(0)
}

func (m *MockPersistence) ReleaseStaleClaims(ctx context.Context, staleBefore time.Time) (int64, error) {
	args := m.Called(ctx, staleBefore)

	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPersistence) PendingScheduledActions(ctx context.Context, tenantID, campaignID string) ([]*models.ScheduledAction, error) {
	args := m.Called(ctx, tenantID, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.ScheduledAction), args.Error(1)
}

func (m *MockPersistence) OutboundMessageByID(ctx context.Context, tenantID, messageID string) (*models.OutboundMessage, error) {
	args := m.Called(ctx, tenantID, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.OutboundMessage), args.Error(1)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
