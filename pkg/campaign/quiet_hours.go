package campaign

import (
	"time"

	"github.com/dukex/cadence/pkg/models"
)

// NextAllowedSendTime defers t past the plan's quiet hours. Outside the
// window (or with no window configured) t is returned unchanged; inside it,
// the next window end in the plan's timezone is returned. Windows may wrap
// midnight (21:00-08:00).
func NextAllowedSendTime(plan *models.CampaignPlan, t time.Time) (time.Time, error) {
	if plan.QuietHours == nil {
		return t, nil
	}

	loc, err := plan.Location()
	if err != nil {
		return time.Time{}, err
	}

	local := t.In(loc)
	start := atClock(local, plan.QuietHours.Start)
	end := atClock(local, plan.QuietHours.End)

	if start.Before(end) {
		// Same-day window, e.g. 12:00-14:00.
		if !local.Before(start) && local.Before(end) {
			return end, nil
		}

		return t, nil
	}

	// Wrapping window, e.g. 21:00-08:00: quiet late evening and early morning.
	if !local.Before(start) {
		return end.AddDate(0, 0, 1), nil
	}

	if local.Before(end) {
		return end, nil
	}

	return t, nil
}

// atClock returns the instant with ref's date and the given HH:MM clock time,
// in ref's location. Boundaries are validated at plan load time.
func atClock(ref time.Time, clock string) time.Time {
	parsed, _ := time.Parse("15:04", clock)

	return time.Date(ref.Year(), ref.Month(), ref.Day(), parsed.Hour(), parsed.Minute(), 0, 0, ref.Location())
}
