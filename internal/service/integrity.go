package service

import (
	"database/sql"
	"fmt"
)

type DoctorReport struct {
	DuplicateEntries    int // same substance at the exact same time
	OrphanGoalTimes     int
	FrequencyMismatches int
	DanglingRetired     int // retired identifiers for goals that no longer exist
	FixedOrphanRows     int
	FixedRetiredRows    int
}

// RunDoctor checks store invariants and, when fix is set, removes rows
// that reference nothing.
func RunDoctor(db *sql.DB, fix bool) (DoctorReport, error) {
	report := DoctorReport{}

	if err := db.QueryRow(`
SELECT COUNT(*) FROM (
  SELECT substance_name, taken_at, COUNT(*) AS n
  FROM entries GROUP BY substance_name, taken_at HAVING n > 1
)`).Scan(&report.DuplicateEntries); err != nil {
		return report, fmt.Errorf("count duplicate entries: %w", err)
	}

	if err := db.QueryRow(`
SELECT COUNT(*) FROM goal_times t
WHERE NOT EXISTS (SELECT 1 FROM goals g WHERE g.id = t.goal_id)`).Scan(&report.OrphanGoalTimes); err != nil {
		return report, fmt.Errorf("count orphan goal times: %w", err)
	}

	if err := db.QueryRow(`
SELECT COUNT(*) FROM goals g
WHERE g.frequency != (SELECT COUNT(*) FROM goal_times t WHERE t.goal_id = g.id)`).Scan(&report.FrequencyMismatches); err != nil {
		return report, fmt.Errorf("count frequency mismatches: %w", err)
	}

	if err := db.QueryRow(`
SELECT COUNT(*) FROM retired_reminders r
WHERE NOT EXISTS (SELECT 1 FROM goals g WHERE r.identifier LIKE 'reminder-' || g.id || '-%')`).Scan(&report.DanglingRetired); err != nil {
		return report, fmt.Errorf("count dangling retired reminders: %w", err)
	}

	if fix {
		res, err := db.Exec(`
DELETE FROM goal_times
WHERE NOT EXISTS (SELECT 1 FROM goals g WHERE g.id = goal_times.goal_id)`)
		if err != nil {
			return report, fmt.Errorf("fix orphan goal times: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			report.FixedOrphanRows = int(n)
		}

		res, err = db.Exec(`
DELETE FROM retired_reminders
WHERE NOT EXISTS (SELECT 1 FROM goals g WHERE retired_reminders.identifier LIKE 'reminder-' || g.id || '-%')`)
		if err != nil {
			return report, fmt.Errorf("fix dangling retired reminders: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			report.FixedRetiredRows = int(n)
		}
	}

	return report, nil
}
