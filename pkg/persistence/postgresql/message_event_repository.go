package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/cadence/pkg/models"
	"github.com/lib/pq"
)

// MessageEventRepository handles recorded provider events.
type MessageEventRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewMessageEventRepository creates a new message event repository.
func NewMessageEventRepository(db *sql.DB, logger *slog.Logger) *MessageEventRepository {
	return &MessageEventRepository{db: db, logger: logger}
}

// Create records one provider event.
func (r *MessageEventRepository) Create(ctx context.Context, event *models.MessageEvent) error {
	query := `
		INSERT INTO message_events (id, tenant_id, message_id, type, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.TenantID,
		event.MessageID,
		event.Type,
		event.OccurredAt,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message event: %w", err)
	}

	return nil
}

// Exists reports whether any event of the given types was recorded for the
// message. This is the supersession check: its answer decides whether a
// pending timeout has already been defeated by a real event.
func (r *MessageEventRepository) Exists(ctx context.Context, tenantID, messageID string, types []models.EventType) (bool, error) {
	if len(types) == 0 {
		return false, nil
	}

	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM message_events
			WHERE tenant_id = $1 AND message_id = $2 AND type = ANY($3)
		)
	`

	var exists bool

	err := r.db.QueryRowContext(ctx, query, tenantID, messageID, pq.Array(names)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query message events: %w", err)
	}

	return exists, nil
}
