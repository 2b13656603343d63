package campaign

import (
	"fmt"
	"time"

	"github.com/dukex/cadence/pkg/models"
)

// TimeoutScheduler turns a node's timeout-class transitions into persisted
// future checks. It only builds the rows; committing them atomically with the
// send bookkeeping is the engine's job, so a failed send never leaves
// orphaned timeouts and a committed send always has its safety net.
type TimeoutScheduler struct{}

func NewTimeoutScheduler() *TimeoutScheduler {
	return &TimeoutScheduler{}
}

// BuildActions computes one ScheduledAction per timeout-class transition on
// the node, at base + after. base is the node's effective send time, so a
// quiet-hours deferral shifts the timeout windows with it.
func (s *TimeoutScheduler) BuildActions(campaign *models.ContactCampaign, node *models.Node, messageID string, base time.Time) ([]*models.ScheduledAction, error) {
	actions := make([]*models.ScheduledAction, 0)

	for _, transition := range node.Transitions {
		if !transition.IsTimeoutClass() {
			continue
		}

		after := transition.EffectiveAfter(campaign.Plan)

		delay, err := models.ParseDuration(after)
		if err != nil {
			return nil, fmt.Errorf("node %s transition on %s: %w", node.ID, transition.On, err)
		}

		action := models.NewScheduledAction(
			campaign.TenantID,
			campaign.ID,
			node.ID,
			messageID,
			transition.On,
			base.Add(delay),
		)

		actions = append(actions, action)
	}

	return actions, nil
}
