package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/cadence/pkg/models"
	"github.com/dukex/cadence/pkg/persistence"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// OutboundMessageRepository handles send bookkeeping rows.
type OutboundMessageRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewOutboundMessageRepository creates a new outbound message repository.
func NewOutboundMessageRepository(db *sql.DB, logger *slog.Logger) *OutboundMessageRepository {
	return &OutboundMessageRepository{db: db, logger: logger}
}

func (r *OutboundMessageRepository) insert(ctx context.Context, q querier, message *models.OutboundMessage) error {
	query := `
		INSERT INTO outbound_messages (
			id, tenant_id, campaign_id, node_id, channel, dedupe_key,
			provider_message_id, send_at, sent_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := q.ExecContext(ctx, query,
		message.ID,
		message.TenantID,
		message.CampaignID,
		message.NodeID,
		message.Channel,
		message.DedupeKey,
		message.ProviderMessageID,
		message.SendAt,
		message.SentAt,
		message.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return persistence.ErrDuplicateSend
		}

		return fmt.Errorf("failed to insert outbound message: %w", err)
	}

	return nil
}

// GetByID loads one send bookkeeping row.
func (r *OutboundMessageRepository) GetByID(ctx context.Context, tenantID, messageID string) (*models.OutboundMessage, error) {
	query := `
		SELECT id, tenant_id, campaign_id, node_id, channel, dedupe_key,
		       provider_message_id, send_at, sent_at, created_at
		FROM outbound_messages
		WHERE id = $1 AND tenant_id = $2
	`

	row := r.db.QueryRowContext(ctx, query, messageID, tenantID)

	var (
		message models.OutboundMessage
		sentAt  sql.NullTime
	)

	err := row.Scan(
		&message.ID,
		&message.TenantID,
		&message.CampaignID,
		&message.NodeID,
		&message.Channel,
		&message.DedupeKey,
		&message.ProviderMessageID,
		&message.SendAt,
		&sentAt,
		&message.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrMessageNotFound
		}

		return nil, fmt.Errorf("failed to scan outbound message: %w", err)
	}

	if sentAt.Valid {
		t := sentAt.Time
		message.SentAt = &t
	}

	return &message, nil
}
