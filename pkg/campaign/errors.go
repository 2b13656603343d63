// Package campaign implements the plan execution engine: transition
// decisions, timeout scheduling and the timeout-vs-real-event race
// resolution.
package campaign

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound indicates the campaign's position or a transition
	// target references a node its frozen plan does not define (plan drift).
	ErrNodeNotFound = errors.New("node not found in plan")
)

// NodeError wraps node resolution failures with context.
type NodeError struct {
	Op         string
	CampaignID string
	NodeID     string
	Err        error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s failed for node %s in campaign %s: %v", e.Op, e.NodeID, e.CampaignID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

func (e *NodeError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsNodeNotFound checks if an error indicates an unresolvable node reference.
func IsNodeNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound)
}
