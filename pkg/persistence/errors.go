// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrCampaignNotFound indicates no contact campaign exists for the identifier.
	ErrCampaignNotFound = errors.New("contact campaign not found")

	// ErrMessageNotFound indicates no outbound message exists for the identifier.
	ErrMessageNotFound = errors.New("outbound message not found")

	// ErrActionNotFound indicates no scheduled action exists for the identifier.
	ErrActionNotFound = errors.New("scheduled action not found")

	// ErrStaleCampaign indicates an optimistic version check lost to a
	// concurrent advance of the same campaign.
	ErrStaleCampaign = errors.New("campaign version is stale")

	// ErrDuplicateSend indicates the outbound message's dedupe key already
	// exists; the node's message was already sent to this contact.
	ErrDuplicateSend = errors.New("duplicate send for dedupe key")
)

// CampaignError wraps campaign-related storage errors with context.
type CampaignError struct {
	Op         string // Operation being performed (e.g. "AdvanceCampaign")
	CampaignID string
	Err        error
}

func (e *CampaignError) Error() string {
	return fmt.Sprintf("%s failed for campaign %s: %v", e.Op, e.CampaignID, e.Err)
}

func (e *CampaignError) Unwrap() error {
	return e.Err
}

func (e *CampaignError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewCampaignError creates a campaign storage error with context.
func NewCampaignError(op, campaignID string, err error) *CampaignError {
	return &CampaignError{Op: op, CampaignID: campaignID, Err: err}
}

// IsCampaignNotFound checks if an error indicates a missing campaign.
func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

// IsMessageNotFound checks if an error indicates a missing outbound message.
func IsMessageNotFound(err error) bool {
	return errors.Is(err, ErrMessageNotFound)
}

// IsStaleCampaign checks if an error indicates a lost optimistic version check.
func IsStaleCampaign(err error) bool {
	return errors.Is(err, ErrStaleCampaign)
}

// IsDuplicateSend checks if an error indicates a dedupe key collision.
func IsDuplicateSend(err error) bool {
	return errors.Is(err, ErrDuplicateSend)
}

// IsActionNotFound checks if an error indicates a missing scheduled action.
func IsActionNotFound(err error) bool {
	return errors.Is(err, ErrActionNotFound)
}
