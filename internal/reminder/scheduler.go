package reminder

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/nondescript74/keeptrack-cli/internal/model"
	"github.com/nondescript74/keeptrack-cli/internal/service"
)

type RecomputeReport struct {
	Scheduled int
	Cancelled int
	Pending   int
}

// NextOccurrence resolves a goal's "HH:MM" slot to its next concrete
// timestamp: today if still strictly ahead of now, otherwise tomorrow.
// A slot already in the past never fires immediately as a catch-up.
func NextOccurrence(timeOfDay string, now time.Time) (time.Time, error) {
	parsed, err := time.Parse("15:04", timeOfDay)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time of day %q, expected HH:MM", timeOfDay)
	}
	at := time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at, nil
}

// ComputeTickets expands active goals into the desired ticket set:
// exactly one ticket per (goal, slot), always in the future.
func ComputeTickets(goals []model.Goal, now time.Time) ([]Ticket, error) {
	tickets := make([]Ticket, 0)
	for _, g := range goals {
		for _, tod := range g.Times {
			at, err := NextOccurrence(tod, now)
			if err != nil {
				return nil, fmt.Errorf("goal %q: %w", g.Name, err)
			}
			tickets = append(tickets, Ticket{GoalID: g.ID, ScheduledAt: at})
		}
	}
	return tickets, nil
}

// Recompute reconciles the desired ticket set against the schedule this
// process itself last persisted, then issues corrective schedule and
// cancel calls. It never trusts a remembered in-memory picture of the
// timer subsystem's state. Running it twice with unchanged goals makes
// zero timer calls the second time.
func Recompute(db *sql.DB, timer Timer, now time.Time) (RecomputeReport, error) {
	report := RecomputeReport{}

	enabled, err := service.GetConfigBool(db, service.ConfigNotificationsEnabled, true)
	if err != nil {
		return report, err
	}

	desired := map[string]Ticket{}
	payloads := map[string]Payload{}
	if enabled {
		goals, err := service.ActiveGoals(db, now)
		if err != nil {
			return report, err
		}
		byID := map[string]model.Goal{}
		for _, g := range goals {
			byID[g.ID] = g
		}
		tickets, err := ComputeTickets(goals, now)
		if err != nil {
			return report, err
		}
		for _, t := range tickets {
			id := t.Identifier()
			retired, err := isRetired(db, id)
			if err != nil {
				return report, err
			}
			if retired {
				continue
			}
			desired[id] = t
			g := byID[t.GoalID]
			payloads[id] = Payload{GoalName: g.Name, Dosage: g.Dosage, Unit: g.Unit}
		}
	}

	current, err := pendingIdentifiers(db)
	if err != nil {
		return report, err
	}

	// Cancel first so the timer subsystem never briefly holds two
	// tickets for the same slot.
	for id := range current {
		if _, keep := desired[id]; keep {
			continue
		}
		if err := timer.Cancel(id); err != nil {
			return report, fmt.Errorf("cancel reminder %s: %w", id, err)
		}
		if _, err := db.Exec(`DELETE FROM reminder_schedule WHERE identifier = ?`, id); err != nil {
			return report, fmt.Errorf("forget reminder %s: %w", id, err)
		}
		report.Cancelled++
	}

	for id, t := range desired {
		if current[id] {
			report.Pending++
			continue
		}
		if err := timer.ScheduleAt(id, t.ScheduledAt, payloads[id]); err != nil {
			return report, fmt.Errorf("schedule reminder %s: %w", id, err)
		}
		if _, err := db.Exec(`INSERT OR IGNORE INTO reminder_schedule(identifier) VALUES(?)`, id); err != nil {
			return report, fmt.Errorf("remember reminder %s: %w", id, err)
		}
		report.Scheduled++
		report.Pending++
	}

	return report, nil
}

// PendingTickets decodes the persisted schedule.
func PendingTickets(db *sql.DB) ([]Ticket, error) {
	ids, err := pendingIdentifiers(db)
	if err != nil {
		return nil, err
	}
	tickets := make([]Ticket, 0, len(ids))
	for id := range ids {
		t, err := ParseIdentifier(id)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

func pendingIdentifiers(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query(`SELECT identifier FROM reminder_schedule`)
	if err != nil {
		return nil, fmt.Errorf("list pending reminders: %w", err)
	}
	defer rows.Close()
	out := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending reminder: %w", err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending reminders: %w", err)
	}
	return out, nil
}

func isRetired(db *sql.DB, identifier string) (bool, error) {
	var one int
	err := db.QueryRow(`SELECT 1 FROM retired_reminders WHERE identifier = ?`, identifier).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check retired reminder %s: %w", identifier, err)
	}
	return true, nil
}
