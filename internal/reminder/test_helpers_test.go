package reminder_test

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/nondescript74/keeptrack-cli/internal/db"
	"github.com/nondescript74/keeptrack-cli/internal/reminder"
	"github.com/nondescript74/keeptrack-cli/internal/service"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keeptrack.db")
	sqldb, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(sqldb); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return sqldb
}

func mustCreateGoal(t *testing.T, sqldb *sql.DB, name string, dosage float64, unit string, times ...string) string {
	t.Helper()
	id, err := service.CreateGoal(sqldb, service.GoalInput{
		Name:   name,
		Dosage: dosage,
		Unit:   unit,
		Times:  times,
	})
	if err != nil {
		t.Fatalf("create goal %q: %v", name, err)
	}
	return id
}

func mustCreateEntry(t *testing.T, sqldb *sql.DB, name string, amount float64, unit string, takenAt time.Time) string {
	t.Helper()
	id, err := service.CreateEntry(sqldb, service.CreateEntryInput{
		SubstanceName: name,
		Amount:        amount,
		Unit:          unit,
		TakenAt:       takenAt,
	})
	if err != nil {
		t.Fatalf("create entry %q: %v", name, err)
	}
	return id
}

// fakeTimer records schedule and cancel calls so tests can assert on
// exactly which corrective calls a recompute issued.
type fakeTimer struct {
	scheduled []string
	cancelled []string
}

func (f *fakeTimer) ScheduleAt(identifier string, at time.Time, payload reminder.Payload) error {
	f.scheduled = append(f.scheduled, identifier)
	return nil
}

func (f *fakeTimer) Cancel(identifier string) error {
	f.cancelled = append(f.cancelled, identifier)
	return nil
}

func (f *fakeTimer) reset() {
	f.scheduled = nil
	f.cancelled = nil
}

func countPending(t *testing.T, sqldb *sql.DB) int {
	t.Helper()
	var n int
	if err := sqldb.QueryRow(`SELECT COUNT(*) FROM reminder_schedule`).Scan(&n); err != nil {
		t.Fatalf("count pending: %v", err)
	}
	return n
}

func retiredStatus(t *testing.T, sqldb *sql.DB, identifier string) string {
	t.Helper()
	var status string
	err := sqldb.QueryRow(`SELECT status FROM retired_reminders WHERE identifier = ?`, identifier).Scan(&status)
	if err == sql.ErrNoRows {
		return ""
	}
	if err != nil {
		t.Fatalf("retired status %s: %v", identifier, err)
	}
	return status
}
