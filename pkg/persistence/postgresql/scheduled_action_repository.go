package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/cadence/pkg/models"
	"github.com/dukex/cadence/pkg/persistence"
)

// ScheduledActionRepository handles persisted timeout checks.
type ScheduledActionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewScheduledActionRepository creates a new scheduled action repository.
func NewScheduledActionRepository(db *sql.DB, logger *slog.Logger) *ScheduledActionRepository {
	return &ScheduledActionRepository{db: db, logger: logger}
}

func (r *ScheduledActionRepository) insert(ctx context.Context, q querier, action *models.ScheduledAction) error {
	payloadJSON, err := json.Marshal(action.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal action payload: %w", err)
	}

	query := `
		INSERT INTO scheduled_actions (
			id, tenant_id, campaign_id, node_id, scheduled_at, payload, claimed_at, executed_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = q.ExecContext(ctx, query,
		action.ID,
		action.TenantID,
		action.CampaignID,
		action.NodeID,
		action.ScheduledAt,
		payloadJSON,
		action.ClaimedAt,
		action.ExecutedAt,
		action.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert scheduled action: %w", err)
	}

	return nil
}

// ClaimDue claims up to limit due, unexecuted, unclaimed actions. SKIP LOCKED
// keeps concurrent dispatchers from double-claiming a row.
func (r *ScheduledActionRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledAction, error) {
	query := `
		UPDATE scheduled_actions
		SET claimed_at = $1
		WHERE id IN (
			SELECT id FROM scheduled_actions
			WHERE executed_at IS NULL
			  AND claimed_at IS NULL
			  AND scheduled_at <= $2
			ORDER BY scheduled_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, tenant_id, campaign_id, node_id, scheduled_at, payload, claimed_at, executed_at, created_at
	`

	rows, err := r.db.QueryContext(ctx, query, now.UTC(), now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due scheduled actions: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	actions := make([]*models.ScheduledAction, 0)

	for rows.Next() {
		action, err := scanScheduledAction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheduled action: %w", err)
		}

		actions = append(actions, action)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating scheduled actions: %w", err)
	}

	return actions, nil
}

func (r *ScheduledActionRepository) markExecuted(ctx context.Context, q querier, actionID string, executedAt time.Time) error {
	query := `
		UPDATE scheduled_actions
		SET executed_at = $1
		WHERE id = $2 AND executed_at IS NULL
	`

	result, err := q.ExecContext(ctx, query, executedAt.UTC(), actionID)
	if err != nil {
		return fmt.Errorf("failed to mark scheduled action executed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.ErrActionNotFound
	}

	return nil
}

// ReleaseStaleClaims requeues actions claimed before staleBefore that never
// executed, recovering from a dispatcher crash between claim and publish.
func (r *ScheduledActionRepository) ReleaseStaleClaims(ctx context.Context, staleBefore time.Time) (int64, error) {
	query := `
		UPDATE scheduled_actions
		SET claimed_at = NULL
		WHERE executed_at IS NULL
		  AND claimed_at IS NOT NULL
		  AND claimed_at < $1
	`

	result, err := r.db.ExecContext(ctx, query, staleBefore.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to release stale claims: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected, nil
}

// PendingByCampaign lists unexecuted actions for one campaign.
func (r *ScheduledActionRepository) PendingByCampaign(ctx context.Context, tenantID, campaignID string) ([]*models.ScheduledAction, error) {
	query := `
		SELECT id, tenant_id, campaign_id, node_id, scheduled_at, payload, claimed_at, executed_at, created_at
		FROM scheduled_actions
		WHERE tenant_id = $1 AND campaign_id = $2 AND executed_at IS NULL
		ORDER BY scheduled_at
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending scheduled actions: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	actions := make([]*models.ScheduledAction, 0)

	for rows.Next() {
		action, err := scanScheduledAction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheduled action: %w", err)
		}

		actions = append(actions, action)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating scheduled actions: %w", err)
	}

	return actions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScheduledAction(row rowScanner) (*models.ScheduledAction, error) {
	var (
		action      models.ScheduledAction
		payloadJSON []byte
		claimedAt   sql.NullTime
		executedAt  sql.NullTime
	)

	err := row.Scan(
		&action.ID,
		&action.TenantID,
		&action.CampaignID,
		&action.NodeID,
		&action.ScheduledAt,
		&payloadJSON,
		&claimedAt,
		&executedAt,
		&action.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(payloadJSON, &action.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal action payload: %w", err)
	}

	if claimedAt.Valid {
		t := claimedAt.Time
		action.ClaimedAt = &t
	}

	if executedAt.Valid {
		t := executedAt.Time
		action.ExecutedAt = &t
	}

	return &action, nil
}
