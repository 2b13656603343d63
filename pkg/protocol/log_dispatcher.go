package protocol

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogDispatcher is the development dispatcher: it records the send in the log
// and fabricates a provider message id. Real provider clients replace it in
// production wiring.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger.With("module", "log_dispatcher")}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, req DispatchRequest) (string, error) {
	providerMessageID := "log-" + uuid.New().String()

	d.logger.InfoContext(ctx, "Dispatching message",
		"tenant_id", req.TenantID,
		"contact_id", req.ContactID,
		"node_id", req.Node.ID,
		"channel", req.Node.Channel,
		"send_at", req.SendAt,
		"provider_message_id", providerMessageID)

	return providerMessageID, nil
}
