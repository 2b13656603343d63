package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/cadence/pkg/models"
	"github.com/dukex/cadence/pkg/persistence"
)

// CampaignRepository handles contact campaign rows.
type CampaignRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewCampaignRepository creates a new contact campaign repository.
func NewCampaignRepository(db *sql.DB, logger *slog.Logger) *CampaignRepository {
	return &CampaignRepository{db: db, logger: logger}
}

// Create persists a freshly started campaign positioned at its start node.
func (r *CampaignRepository) Create(ctx context.Context, campaign *models.ContactCampaign) error {
	query := `
		INSERT INTO contact_campaigns (
			id, tenant_id, contact_id, lead_id, plan_json, started_at,
			current_node_id, entered_node_at, version, completed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		campaign.ID,
		campaign.TenantID,
		campaign.ContactID,
		campaign.LeadID,
		[]byte(campaign.PlanJSON),
		campaign.StartedAt,
		campaign.CurrentNodeID,
		campaign.EnteredNodeAt,
		campaign.Version,
		campaign.CompletedAt,
		campaign.CreatedAt,
		campaign.UpdatedAt,
	)
	if err != nil {
		return persistence.NewCampaignError("Create", campaign.ID, err)
	}

	return nil
}

// GetByID loads a campaign with its frozen plan decoded.
func (r *CampaignRepository) GetByID(ctx context.Context, tenantID, campaignID string) (*models.ContactCampaign, error) {
	query := `
		SELECT
			id
		  , tenant_id
		  , contact_id
		  , lead_id
		  , plan_json
		  , started_at
		  , current_node_id
		  , entered_node_at
		  , version
		  , completed_at
		  , created_at
		  , updated_at
		FROM contact_campaigns
		WHERE id = $1 AND tenant_id = $2
	`

	row := r.db.QueryRowContext(ctx, query, campaignID, tenantID)

	var (
		campaign    models.ContactCampaign
		planJSON    []byte
		completedAt sql.NullTime
	)

	err := row.Scan(
		&campaign.ID,
		&campaign.TenantID,
		&campaign.ContactID,
		&campaign.LeadID,
		&planJSON,
		&campaign.StartedAt,
		&campaign.CurrentNodeID,
		&campaign.EnteredNodeAt,
		&campaign.Version,
		&completedAt,
		&campaign.CreatedAt,
		&campaign.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewCampaignError("GetByID", campaignID, persistence.ErrCampaignNotFound)
		}

		return nil, persistence.NewCampaignError("GetByID", campaignID, fmt.Errorf("failed to scan campaign: %w", err))
	}

	campaign.PlanJSON = planJSON

	if completedAt.Valid {
		t := completedAt.Time
		campaign.CompletedAt = &t
	}

	err = campaign.DecodePlan()
	if err != nil {
		return nil, persistence.NewCampaignError("GetByID", campaignID, err)
	}

	return &campaign, nil
}

// updatePosition advances the materialized position under the optimistic
// version check. Zero affected rows means a concurrent advance won.
func (r *CampaignRepository) updatePosition(ctx context.Context, q querier, campaign *models.ContactCampaign, expectedVersion int64) error {
	query := `
		UPDATE contact_campaigns
		SET current_node_id = $1
		  , entered_node_at = $2
		  , version = version + 1
		  , completed_at = $3
		  , updated_at = $4
		WHERE id = $5 AND version = $6
	`

	result, err := q.ExecContext(ctx, query,
		campaign.CurrentNodeID,
		campaign.EnteredNodeAt,
		campaign.CompletedAt,
		time.Now().UTC(),
		campaign.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update campaign position: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.ErrStaleCampaign
	}

	campaign.Version = expectedVersion + 1

	return nil
}
