package service_test

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/nondescript74/keeptrack-cli/internal/db"
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

func countRows(t *testing.T, sqldb *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := sqldb.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
