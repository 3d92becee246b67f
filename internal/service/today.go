package service

import (
	"database/sql"
	"fmt"
	"sort"
	"time"
)

type TodayOccurrence struct {
	GoalID      string
	GoalName    string
	Dosage      float64
	Unit        string
	ScheduledAt time.Time
	Logged      bool
	EntryID     string
}

type TodayView struct {
	Date        string
	Occurrences []TodayOccurrence
	Unscheduled int // entries today that match no occurrence
}

// TodaySummary merges today's scheduled goal occurrences with what has
// actually been logged, using the shared correlation tolerance.
func TodaySummary(db *sql.DB, now time.Time) (*TodayView, error) {
	goals, err := ActiveGoals(db, now)
	if err != nil {
		return nil, err
	}

	view := &TodayView{Date: now.Format("2006-01-02")}
	matched := map[string]bool{}

	for _, g := range goals {
		for _, tod := range g.Times {
			hour, minute, err := parseTimeOfDay(tod)
			if err != nil {
				return nil, fmt.Errorf("goal %q: %w", g.Name, err)
			}
			at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
			occ := TodayOccurrence{
				GoalID:      g.ID,
				GoalName:    g.Name,
				Dosage:      g.Dosage,
				Unit:        g.Unit,
				ScheduledAt: at,
			}
			entry, err := FindEntryNear(db, g.Name, at, CorrelationTolerance)
			if err != nil {
				return nil, err
			}
			if entry != nil {
				occ.Logged = true
				occ.EntryID = entry.ID
				matched[entry.ID] = true
			}
			view.Occurrences = append(view.Occurrences, occ)
		}
	}

	sort.Slice(view.Occurrences, func(i, j int) bool {
		if view.Occurrences[i].ScheduledAt.Equal(view.Occurrences[j].ScheduledAt) {
			return view.Occurrences[i].GoalName < view.Occurrences[j].GoalName
		}
		return view.Occurrences[i].ScheduledAt.Before(view.Occurrences[j].ScheduledAt)
	})

	entries, err := ListEntries(db, ListEntriesFilter{Date: view.Date, Limit: 200})
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !matched[e.ID] {
			view.Unscheduled++
		}
	}
	return view, nil
}
