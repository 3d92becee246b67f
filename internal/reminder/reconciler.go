package reminder

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/nondescript74/keeptrack-cli/internal/model"
	"github.com/nondescript74/keeptrack-cli/internal/service"
)

const (
	statusResolved  = "resolved"
	statusCancelled = "cancelled"
)

// Delivery is the decision for a ticket the timer subsystem is about to
// surface.
type Delivery struct {
	Ticket     Ticket
	Surface    bool
	Suppressed bool
	Superseded []string // earlier same-goal identifiers cancelled first
	Payload    Payload
}

// OpenPrompt is handed to the presentation layer when the user taps a
// reminder without choosing confirm or cancel.
type OpenPrompt struct {
	Identifier  string
	GoalName    string
	ScheduledAt time.Time
}

// ActionResult reports what a user action did to the store.
type ActionResult struct {
	Action     Action
	EntryID    string
	Correlated bool // an existing entry was marked instead of creating one
	Prompt     *OpenPrompt
}

// HandleDelivery decides whether a firing ticket surfaces. Earlier
// unacknowledged tickets for the same goal are cancelled first; a dose
// already logged inside the tolerance window suppresses the visible
// notification but still resolves the ticket.
func HandleDelivery(db *sql.DB, timer Timer, identifier string, now time.Time) (*Delivery, error) {
	t, err := ParseIdentifier(identifier)
	if err != nil {
		return nil, err
	}
	out := &Delivery{Ticket: t}

	// The external timer may replay a delivery whose Cancel raced.
	// Resolved and cancelled identifiers stay silent forever.
	retired, err := isRetired(db, identifier)
	if err != nil {
		return nil, err
	}
	if retired {
		return out, nil
	}

	goal, err := service.GetGoal(db, t.GoalID)
	if err != nil {
		return nil, err
	}
	if goal == nil {
		// Goal deleted since scheduling; retire quietly.
		if err := retire(db, identifier, statusCancelled); err != nil {
			return nil, err
		}
		return out, nil
	}

	pending, err := PendingTickets(db)
	if err != nil {
		return nil, err
	}
	for _, p := range pending {
		if p.GoalID != t.GoalID || !p.ScheduledAt.Before(t.ScheduledAt) {
			continue
		}
		earlier := p.Identifier()
		if err := timer.Cancel(earlier); err != nil {
			return nil, fmt.Errorf("cancel superseded reminder %s: %w", earlier, err)
		}
		if err := retire(db, earlier, statusCancelled); err != nil {
			return nil, err
		}
		out.Superseded = append(out.Superseded, earlier)
	}

	entry, err := service.FindEntryNear(db, goal.Name, t.ScheduledAt, service.CorrelationTolerance)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		if err := retire(db, identifier, statusResolved); err != nil {
			return nil, err
		}
		out.Suppressed = true
		return out, nil
	}

	// Surfacing: the ticket has fired, so it leaves the pending set
	// either way; resolution now depends on the user's action.
	if _, err := db.Exec(`DELETE FROM reminder_schedule WHERE identifier = ?`, identifier); err != nil {
		return nil, fmt.Errorf("forget fired reminder %s: %w", identifier, err)
	}
	out.Surface = true
	out.Payload = Payload{GoalName: goal.Name, Dosage: goal.Dosage, Unit: goal.Unit}
	return out, nil
}

// HandleAction translates the user's response to a surfaced reminder
// into a store mutation. A store failure during confirm or cancel
// leaves the ticket unresolved so the next activation can retry; a
// user's confirmation is never silently dropped.
func HandleAction(db *sql.DB, identifier string, action Action, now time.Time) (*ActionResult, error) {
	t, err := ParseIdentifier(identifier)
	if err != nil {
		return nil, err
	}
	out := &ActionResult{Action: action}

	switch action {
	case ActionConfirm:
		goal, err := service.GetGoal(db, t.GoalID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", service.ErrReminderActionFailed, err)
		}
		if goal == nil {
			if err := retire(db, identifier, statusCancelled); err != nil {
				return nil, err
			}
			return out, nil
		}
		entry, err := service.FindEntryNear(db, goal.Name, t.ScheduledAt, service.CorrelationTolerance)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", service.ErrReminderActionFailed, err)
		}
		if entry != nil {
			if err := service.MarkGoalMet(db, entry.ID); err != nil {
				return nil, fmt.Errorf("%w: %v", service.ErrReminderActionFailed, err)
			}
			out.EntryID = entry.ID
			out.Correlated = true
		} else {
			id, err := service.CreateEntry(db, service.CreateEntryInput{
				SubstanceName: goal.Name,
				Amount:        goal.Dosage,
				Unit:          goal.Unit,
				TakenAt:       now,
				GoalMet:       true,
				Source:        model.SourceReminder,
			})
			if err != nil {
				return nil, fmt.Errorf("%w: %v", service.ErrReminderActionFailed, err)
			}
			out.EntryID = id
		}
		if err := retire(db, identifier, statusResolved); err != nil {
			return nil, err
		}
		return out, nil

	case ActionCancel:
		if err := retire(db, identifier, statusCancelled); err != nil {
			return nil, fmt.Errorf("%w: %v", service.ErrReminderActionFailed, err)
		}
		return out, nil

	case ActionOpen:
		goal, err := service.GetGoal(db, t.GoalID)
		if err != nil {
			return nil, err
		}
		if goal == nil {
			return out, nil
		}
		out.Prompt = &OpenPrompt{Identifier: identifier, GoalName: goal.Name, ScheduledAt: t.ScheduledAt}
		return out, nil

	default:
		// Unrecognized action strings from the timer subsystem are a
		// no-op, never a crash.
		return out, nil
	}
}

// ConfirmOpenPrompt finishes the open flow once the presentation layer
// reports the user's choice. An accepting user either marks the entry
// already sitting inside the tolerance window or gets a new entry dated
// at the scheduled time; declining mutates nothing.
func ConfirmOpenPrompt(db *sql.DB, identifier string, accepted bool, now time.Time) (*ActionResult, error) {
	t, err := ParseIdentifier(identifier)
	if err != nil {
		return nil, err
	}
	out := &ActionResult{Action: ActionOpen}
	if !accepted {
		return out, nil
	}

	goal, err := service.GetGoal(db, t.GoalID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrReminderActionFailed, err)
	}
	if goal == nil {
		if err := retire(db, identifier, statusCancelled); err != nil {
			return nil, err
		}
		return out, nil
	}

	entry, err := service.FindEntryNear(db, goal.Name, t.ScheduledAt, service.CorrelationTolerance)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrReminderActionFailed, err)
	}
	if entry != nil {
		if err := service.MarkGoalMet(db, entry.ID); err != nil {
			return nil, fmt.Errorf("%w: %v", service.ErrReminderActionFailed, err)
		}
		out.EntryID = entry.ID
		out.Correlated = true
	} else {
		id, err := service.CreateEntry(db, service.CreateEntryInput{
			SubstanceName: goal.Name,
			Amount:        goal.Dosage,
			Unit:          goal.Unit,
			TakenAt:       t.ScheduledAt,
			GoalMet:       true,
			Source:        model.SourceReminder,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", service.ErrReminderActionFailed, err)
		}
		out.EntryID = id
	}
	if err := retire(db, identifier, statusResolved); err != nil {
		return nil, err
	}
	return out, nil
}

// retire moves an identifier out of the pending set for good. Retired
// identifiers are excluded from every later recompute, so a resolved or
// cancelled occurrence can never fire again, across restarts included.
func retire(db *sql.DB, identifier, status string) error {
	if _, err := db.Exec(`INSERT OR IGNORE INTO retired_reminders(identifier, status) VALUES(?, ?)`, identifier, status); err != nil {
		return fmt.Errorf("retire reminder %s: %w", identifier, err)
	}
	if _, err := db.Exec(`DELETE FROM reminder_schedule WHERE identifier = ?`, identifier); err != nil {
		return fmt.Errorf("forget retired reminder %s: %w", identifier, err)
	}
	return nil
}
