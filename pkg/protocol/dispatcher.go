// Package protocol defines the interfaces consumed from external collaborators.
package protocol

import (
	"context"
	"time"

	"github.com/dukex/cadence/pkg/models"
)

// DispatchRequest carries a fully-resolved node and message to the outbound
// provider layer. SendAt may be in the future when quiet hours deferred the
// send; scheduled delivery is the provider's concern.
type DispatchRequest struct {
	TenantID  string
	ContactID string
	LeadID    string
	Message   *models.OutboundMessage
	Node      *models.Node
	SendAt    time.Time
}

// Dispatcher hands a message to the concrete provider client (SendGrid,
// Gmail, Outlook, ...). Implementations live outside this module.
type Dispatcher interface {
	// Dispatch submits the message and returns the provider's message id.
	Dispatch(ctx context.Context, req DispatchRequest) (string, error)
}
