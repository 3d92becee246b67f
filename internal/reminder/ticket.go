// Package reminder holds the scheduling and reconciliation logic for
// timed goal reminders: computing the pending ticket set, suppressing
// reminders the user already logged, superseding stale ones, and
// translating user responses into store mutations.
package reminder

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// identifierPrefix is a protocol fact shared with the timer subsystem:
// the identifier is the only representation of a pending reminder, and
// the epoch suffix after the last separator must parse back to the
// scheduled time.
const identifierPrefix = "reminder-"

// Ticket is one scheduled, not-yet-resolved reminder occurrence.
type Ticket struct {
	GoalID      string
	ScheduledAt time.Time
}

// Identifier encodes the ticket as reminder-<goalID>-<epochSeconds>.
func (t Ticket) Identifier() string {
	return fmt.Sprintf("%s%s-%d", identifierPrefix, t.GoalID, t.ScheduledAt.Unix())
}

// ParseIdentifier is the inverse of Identifier. Goal ids contain
// hyphens, so the epoch is taken after the last separator.
func ParseIdentifier(identifier string) (Ticket, error) {
	if !strings.HasPrefix(identifier, identifierPrefix) {
		return Ticket{}, fmt.Errorf("identifier %q lacks %q prefix", identifier, identifierPrefix)
	}
	rest := identifier[len(identifierPrefix):]
	sep := strings.LastIndex(rest, "-")
	if sep <= 0 || sep == len(rest)-1 {
		return Ticket{}, fmt.Errorf("identifier %q is not goalID-epoch shaped", identifier)
	}
	epoch, err := strconv.ParseInt(rest[sep+1:], 10, 64)
	if err != nil {
		return Ticket{}, fmt.Errorf("identifier %q has non-numeric epoch: %w", identifier, err)
	}
	return Ticket{GoalID: rest[:sep], ScheduledAt: time.Unix(epoch, 0)}, nil
}

// Action is the closed set of user responses the timer subsystem can
// report. Unknown strings decode to ActionUnknown and are handled as a
// no-op, never a failure.
type Action int

const (
	ActionUnknown Action = iota
	ActionConfirm
	ActionCancel
	ActionOpen
)

func ParseAction(raw string) Action {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "confirm", "taken":
		return ActionConfirm
	case "cancel", "dismiss":
		return ActionCancel
	case "open", "tap", "default":
		return ActionOpen
	default:
		return ActionUnknown
	}
}

func (a Action) String() string {
	switch a {
	case ActionConfirm:
		return "confirm"
	case ActionCancel:
		return "cancel"
	case ActionOpen:
		return "open"
	default:
		return "unknown"
	}
}
