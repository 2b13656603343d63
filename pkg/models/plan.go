// Package models defines the core domain models for campaign plan execution.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPlan is returned when a campaign plan fails shape or semantic validation.
var ErrInvalidPlan = errors.New("invalid campaign plan")

// IsInvalidPlan checks if an error indicates a rejected campaign plan.
func IsInvalidPlan(err error) bool {
	return errors.Is(err, ErrInvalidPlan)
}

// NodeAction is the kind of step a plan node performs.
type NodeAction string

const (
	NodeActionSend NodeAction = "send" // Dispatch an outbound message
	NodeActionWait NodeAction = "wait" // Hold position, timers only
	NodeActionStop NodeAction = "stop" // Terminal, completes the campaign
)

// EventType identifies a real messaging event or an elapsed-time timeout.
type EventType string

const (
	EventOpened    EventType = "opened"
	EventClicked   EventType = "clicked"
	EventDelivered EventType = "delivered"
	EventReplied   EventType = "replied"
	EventBounced   EventType = "bounced"

	// Timeout-class events, produced by the scheduler rather than a provider.
	EventNoOpen  EventType = "no_open"
	EventNoClick EventType = "no_click"
)

// IsTimeout reports whether the event type is produced by elapsed time
// instead of an inbound provider event.
func (e EventType) IsTimeout() bool {
	return e == EventNoOpen || e == EventNoClick
}

// IsReal reports whether the event type is a recorded provider occurrence.
func (e EventType) IsReal() bool {
	switch e {
	case EventOpened, EventClicked, EventDelivered, EventReplied, EventBounced:
		return true
	default:
		return false
	}
}

// SupersededBy returns the real event types that defeat a pending timeout of
// this type. A recorded click implies an open, so it defeats no_open too.
func (e EventType) SupersededBy() []EventType {
	switch e {
	case EventNoOpen:
		return []EventType{EventOpened, EventClicked}
	case EventNoClick:
		return []EventType{EventClicked}
	default:
		return nil
	}
}

// Transition moves a contact from one node to another, either on a real event
// (optionally bounded by Within) or after an elapsed delay with no event (After).
type Transition struct {
	ID     string    `json:"id,omitempty"`
	On     EventType `json:"on"           validate:"required"`
	To     string    `json:"to"           validate:"required"`
	Within string    `json:"within,omitempty"`
	After  string    `json:"after,omitempty"`
}

// IsTimeoutClass reports whether this transition is realized via a delayed
// job. Only no_open/no_click rules are scheduled; an After on a real-event
// rule is authored noise and never produces a job.
func (t Transition) IsTimeoutClass() bool {
	return t.On.IsTimeout()
}

// EffectiveAfter resolves the transition's delay, falling back to the plan's
// default timers when the rule omits After.
func (t Transition) EffectiveAfter(p *CampaignPlan) string {
	if t.After != "" {
		return t.After
	}

	if p.Defaults == nil || p.Defaults.Timers == nil {
		return ""
	}

	switch t.On {
	case EventNoOpen:
		return p.Defaults.Timers.NoOpenAfter
	case EventNoClick:
		return p.Defaults.Timers.NoClickAfter
	default:
		return ""
	}
}

// Node is one step in an authored plan.
type Node struct {
	ID          string        `json:"id"      validate:"required"`
	Action      NodeAction    `json:"action"  validate:"required,oneof=send wait stop"`
	Channel     string        `json:"channel"`
	Subject     string        `json:"subject,omitempty"`
	Body        string        `json:"body,omitempty"`
	Schedule    *NodeSchedule `json:"schedule,omitempty"`
	Transitions []Transition  `json:"transitions,omitempty"`
}

// NodeSchedule delays the node's own action relative to entering the node.
type NodeSchedule struct {
	Delay string `json:"delay" validate:"required"`
}

// QuietHours is a local-time window during which sends are deferred.
// Start and End are "HH:MM" in the plan's timezone; a window may wrap
// midnight (e.g. 21:00-08:00).
type QuietHours struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end"   validate:"required"`
}

// PlanDefaults carries plan-wide fallback timers.
type PlanDefaults struct {
	Timers *DefaultTimers `json:"timers,omitempty"`
}

// DefaultTimers are fallback delays applied when a transition omits After.
type DefaultTimers struct {
	NoOpenAfter  string `json:"no_open_after,omitempty"`
	NoClickAfter string `json:"no_click_after,omitempty"`
}

// CampaignPlan is the authored, versioned graph of nodes and transitions for
// an outreach sequence. It is captured as an immutable snapshot on each
// ContactCampaign at start time, so later template edits never affect
// in-flight contacts.
type CampaignPlan struct {
	Version     int           `json:"version"     validate:"required,min=1"`
	Timezone    string        `json:"timezone"    validate:"required"`
	QuietHours  *QuietHours   `json:"quietHours,omitempty"`
	Defaults    *PlanDefaults `json:"defaults,omitempty"`
	StartNodeID string        `json:"startNodeId" validate:"required"`
	Nodes       []Node        `json:"nodes"       validate:"required,min=1,dive"`
}

// NodeByID returns the node with the given id, or false when the plan does
// not define it.
func (p *CampaignPlan) NodeByID(id string) (*Node, bool) {
	for i := range p.Nodes {
		if p.Nodes[i].ID == id {
			return &p.Nodes[i], true
		}
	}

	return nil, false
}

// Location resolves the plan's timezone. Plans are validated at load time, so
// an unparseable zone here is a plan-drift error.
func (p *CampaignPlan) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidPlan, p.Timezone)
	}

	return loc, nil
}

// Validate performs the semantic checks the JSON schema cannot express:
// resolvable node references, well-formed durations and exactly one of
// within/after per transition, no duplicate event rules on a node.
func (p *CampaignPlan) Validate() error {
	if _, ok := p.NodeByID(p.StartNodeID); !ok {
		return fmt.Errorf("%w: start node %q not defined", ErrInvalidPlan, p.StartNodeID)
	}

	if _, err := p.Location(); err != nil {
		return err
	}

	if p.QuietHours != nil {
		if err := p.QuietHours.validate(); err != nil {
			return err
		}
	}

	if p.Defaults != nil && p.Defaults.Timers != nil {
		for _, d := range []string{p.Defaults.Timers.NoOpenAfter, p.Defaults.Timers.NoClickAfter} {
			if d == "" {
				continue
			}

			if _, err := ParseDuration(d); err != nil {
				return fmt.Errorf("%w: default timer: %w", ErrInvalidPlan, err)
			}
		}
	}

	for _, node := range p.Nodes {
		if err := validateNode(p, node); err != nil {
			return err
		}
	}

	return nil
}

func validateNode(p *CampaignPlan, node Node) error {
	if node.Schedule != nil {
		if _, err := ParseDuration(node.Schedule.Delay); err != nil {
			return fmt.Errorf("%w: node %q schedule delay: %w", ErrInvalidPlan, node.ID, err)
		}
	}

	if node.Action == NodeActionStop && len(node.Transitions) > 0 {
		return fmt.Errorf("%w: stop node %q declares transitions", ErrInvalidPlan, node.ID)
	}

	seen := make(map[EventType]bool, len(node.Transitions))

	for _, tr := range node.Transitions {
		if _, ok := p.NodeByID(tr.To); !ok {
			return fmt.Errorf("%w: node %q transition targets unknown node %q", ErrInvalidPlan, node.ID, tr.To)
		}

		// Authoring mistake: runtime would silently pick the first declared
		// match, so reject the ambiguity before it reaches execution.
		if seen[tr.On] {
			return fmt.Errorf("%w: node %q declares multiple transitions on %q", ErrInvalidPlan, node.ID, tr.On)
		}

		seen[tr.On] = true

		if tr.Within != "" && tr.After != "" {
			return fmt.Errorf("%w: node %q transition on %q sets both within and after", ErrInvalidPlan, node.ID, tr.On)
		}

		if tr.Within != "" {
			if _, err := ParseDuration(tr.Within); err != nil {
				return fmt.Errorf("%w: node %q transition on %q within: %w", ErrInvalidPlan, node.ID, tr.On, err)
			}
		}

		if tr.After != "" {
			if _, err := ParseDuration(tr.After); err != nil {
				return fmt.Errorf("%w: node %q transition on %q after: %w", ErrInvalidPlan, node.ID, tr.On, err)
			}
		}

		// A timeout rule needs a delay from somewhere: its own After or the
		// plan defaults.
		if tr.On.IsTimeout() && tr.EffectiveAfter(p) == "" {
			return fmt.Errorf("%w: node %q transition on %q has no after and no default timer", ErrInvalidPlan, node.ID, tr.On)
		}
	}

	return nil
}

func (q *QuietHours) validate() error {
	for _, v := range []string{q.Start, q.End} {
		if _, err := time.Parse("15:04", v); err != nil {
			return fmt.Errorf("%w: quiet hours boundary %q is not HH:MM", ErrInvalidPlan, v)
		}
	}

	if q.Start == q.End {
		return fmt.Errorf("%w: quiet hours window is empty", ErrInvalidPlan)
	}

	return nil
}

// ParsePlan decodes and fully validates a frozen plan snapshot.
func ParsePlan(raw []byte) (*CampaignPlan, error) {
	if err := ValidatePlanJSON(raw); err != nil {
		return nil, err
	}

	var plan CampaignPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}

	return &plan, nil
}
