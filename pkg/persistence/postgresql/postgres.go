// Package postgresql provides the PostgreSQL persistence implementation for
// campaign execution state.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/cadence/pkg/models"
	"github.com/dukex/cadence/pkg/persistence"
	"github.com/dukex/cadence/pkg/persistence/sqlbase"
	_ "github.com/lib/pq" // postgres driver
)

// querier is satisfied by *sql.DB and *sql.Tx so repository helpers can run
// inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	campaignRepo *CampaignRepository
	actionRepo   *ScheduledActionRepository
	eventRepo    *MessageEventRepository
	messageRepo  *OutboundMessageRepository
}

// NewPersistence connects, runs migrations and returns a ready store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:           database,
		logger:       logger,
		campaignRepo: NewCampaignRepository(database, logger),
		actionRepo:   NewScheduledActionRepository(database, logger),
		eventRepo:    NewMessageEventRepository(database, logger),
		messageRepo:  NewOutboundMessageRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) CreateContactCampaign(ctx context.Context, campaign *models.ContactCampaign) error {
	return p.campaignRepo.Create(ctx, campaign)
}

func (p *Persistence) ContactCampaignByID(ctx context.Context, tenantID, campaignID string) (*models.ContactCampaign, error) {
	return p.campaignRepo.GetByID(ctx, tenantID, campaignID)
}

// AdvanceCampaign applies one transition atomically: position update under
// the optimistic version check, outbound message insert, scheduled action
// inserts and consumption of the triggering action.
func (p *Persistence) AdvanceCampaign(ctx context.Context, advance *persistence.CampaignAdvance) error {
	campaignID := advance.Campaign.ID

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewCampaignError("AdvanceCampaign", campaignID, fmt.Errorf("failed to begin transaction: %w", err))
	}

	err = p.advanceInTx(ctx, tx, advance)
	if err != nil {
		_ = tx.Rollback()

		return persistence.NewCampaignError("AdvanceCampaign", campaignID, err)
	}

	err = tx.Commit()
	if err != nil {
		return persistence.NewCampaignError("AdvanceCampaign", campaignID, fmt.Errorf("failed to commit: %w", err))
	}

	return nil
}

func (p *Persistence) advanceInTx(ctx context.Context, tx *sql.Tx, advance *persistence.CampaignAdvance) error {
	err := p.campaignRepo.updatePosition(ctx, tx, advance.Campaign, advance.ExpectedVersion)
	if err != nil {
		return err
	}

	if advance.Message != nil {
		err = p.messageRepo.insert(ctx, tx, advance.Message)
		if err != nil {
			return err
		}
	}

	for _, action := range advance.Actions {
		err = p.actionRepo.insert(ctx, tx, action)
		if err != nil {
			return err
		}
	}

	if advance.ExecutedActionID != "" {
		err = p.actionRepo.markExecuted(ctx, tx, advance.ExecutedActionID, time.Now().UTC())
		if err != nil {
			return err
		}
	}

	return nil
}

func (p *Persistence) CreateMessageEvent(ctx context.Context, event *models.MessageEvent) error {
	return p.eventRepo.Create(ctx, event)
}

func (p *Persistence) MessageEventExists(ctx context.Context, tenantID, messageID string, types []models.EventType) (bool, error) {
	return p.eventRepo.Exists(ctx, tenantID, messageID, types)
}

func (p *Persistence) ClaimDueScheduledActions(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledAction, error) {
	return p.actionRepo.ClaimDue(ctx, now, limit)
}

func (p *Persistence) MarkScheduledActionExecuted(ctx context.Context, actionID string, executedAt time.Time) error {
	return p.actionRepo.markExecuted(ctx, p.db, actionID, executedAt)
}

func (p *Persistence) ReleaseStaleClaims(ctx context.Context, staleBefore time.Time) (int64, error) {
	return p.actionRepo.ReleaseStaleClaims(ctx, staleBefore)
}

func (p *Persistence) PendingScheduledActions(ctx context.Context, tenantID, campaignID string) ([]*models.ScheduledAction, error) {
	return p.actionRepo.PendingByCampaign(ctx, tenantID, campaignID)
}

func (p *Persistence) OutboundMessageByID(ctx context.Context, tenantID, messageID string) (*models.OutboundMessage, error) {
	return p.messageRepo.GetByID(ctx, tenantID, messageID)
}
