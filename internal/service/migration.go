package service

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nondescript74/keeptrack-cli/internal/db"
	"github.com/nondescript74/keeptrack-cli/internal/legacy"
	"github.com/nondescript74/keeptrack-cli/internal/model"
)

var defaultSlotTimes = [][]string{
	{"08:00"},
	{"08:00", "20:00"},
	{"08:00", "14:00", "20:00"},
}

type MigrateReport struct {
	AlreadyDone bool
	Entries     int
	Goals       int
}

type MigrationStatus struct {
	LegacyCompleted  bool
	SchemaVersion    int
	ConfirmedVersion int
}

// MigrateAllData performs the one-shot legacy flat-file migration. The
// migrated rows and the completion flag commit in a single transaction,
// so a crash at any point leaves the flag false and the structured
// store untouched. The legacy file is never deleted here.
func MigrateAllData(sqldb *sql.DB, legacyPath string) (MigrateReport, error) {
	report := MigrateReport{}

	done, err := GetConfigBool(sqldb, ConfigLegacyMigrationDone, false)
	if err != nil {
		return report, err
	}
	if done {
		report.AlreadyDone = true
		return report, nil
	}

	store, err := legacy.Load(legacyPath)
	if err != nil {
		return report, fmt.Errorf("%w: %v", ErrMigrationIncomplete, err)
	}

	tx, err := sqldb.Begin()
	if err != nil {
		return report, fmt.Errorf("%w: begin migration tx: %v", ErrMigrationIncomplete, err)
	}
	defer func() { _ = tx.Rollback() }()

	if store != nil {
		for _, in := range store.Intakes {
			name := strings.TrimSpace(in.Name)
			if name == "" {
				return report, fmt.Errorf("%w: legacy intake with empty name", ErrMigrationIncomplete)
			}
			takenAt := in.Time
			if takenAt.IsZero() {
				takenAt = time.Now()
			}
			if _, err := tx.Exec(`
INSERT INTO entries(id, substance_name, amount, unit, taken_at, goal_met, source)
VALUES(?, ?, ?, ?, ?, ?, ?)
`, uuid.NewString(), name, in.Amount, strings.TrimSpace(in.Units), takenAt.Format(time.RFC3339), boolToInt(in.GoalMet), model.SourceImport); err != nil {
				return report, fmt.Errorf("%w: migrate intake %q: %v", ErrMigrationIncomplete, name, err)
			}
			report.Entries++
		}
		for _, g := range store.Goals {
			name := strings.TrimSpace(g.Name)
			if name == "" {
				return report, fmt.Errorf("%w: legacy goal with empty name", ErrMigrationIncomplete)
			}
			freq, err := legacy.FrequencyCount(g.Frequency)
			if err != nil {
				return report, fmt.Errorf("%w: migrate goal %q: %v", ErrMigrationIncomplete, name, err)
			}
			times := g.Times
			if len(times) != freq {
				times = defaultSlotTimes[freq-1]
			}
			goalID := uuid.NewString()
			if _, err := tx.Exec(`
INSERT INTO goals(id, name, description, dosage, unit, frequency, start_date, end_date, is_active, is_completed)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, goalID, name, strings.TrimSpace(g.Description), g.Dosage, strings.TrimSpace(g.Units), freq, nullableString(g.Start), nullableString(g.End), boolToInt(g.Active), boolToInt(g.Completed)); err != nil {
				return report, fmt.Errorf("%w: migrate goal %q: %v", ErrMigrationIncomplete, name, err)
			}
			for slot, tod := range times {
				if _, err := tx.Exec(`INSERT INTO goal_times(goal_id, slot, time_of_day) VALUES(?, ?, ?)`, goalID, slot, strings.TrimSpace(tod)); err != nil {
					return report, fmt.Errorf("%w: migrate goal %q slot %d: %v", ErrMigrationIncomplete, name, slot, err)
				}
			}
			report.Goals++
		}
	}

	if _, err := tx.Exec(`
INSERT INTO app_config(key, value, updated_at)
VALUES(?, 'true', CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
`, ConfigLegacyMigrationDone); err != nil {
		return report, fmt.Errorf("%w: record migration flag: %v", ErrMigrationIncomplete, err)
	}
	if err := tx.Commit(); err != nil {
		return report, fmt.Errorf("%w: commit migration: %v", ErrMigrationIncomplete, err)
	}
	return report, nil
}

// ResetLegacyMigration clears the one-shot flag. Developer escape
// hatch; nothing in normal operation calls it.
func ResetLegacyMigration(sqldb *sql.DB) error {
	return SetConfig(sqldb, ConfigLegacyMigrationDone, "false")
}

func MigrationStatusInfo(sqldb *sql.DB) (MigrationStatus, error) {
	var status MigrationStatus
	done, err := GetConfigBool(sqldb, ConfigLegacyMigrationDone, false)
	if err != nil {
		return status, err
	}
	status.LegacyCompleted = done

	version, err := db.CurrentVersion(sqldb)
	if err != nil {
		return status, err
	}
	status.SchemaVersion = version

	confirmed, ok, err := GetConfig(sqldb, ConfigConfirmedSchemaVersion)
	if err != nil {
		return status, err
	}
	if ok {
		v, err := strconv.Atoi(strings.TrimSpace(confirmed))
		if err != nil {
			return status, fmt.Errorf("parse confirmed schema version %q: %w", confirmed, err)
		}
		status.ConfirmedVersion = v
	}
	return status, nil
}

// NeedsSchemaConfirmation reports whether the storage layer has applied
// a schema version newer than the last one confirmed by a successful
// run.
func NeedsSchemaConfirmation(sqldb *sql.DB) (bool, int, error) {
	status, err := MigrationStatusInfo(sqldb)
	if err != nil {
		return false, 0, err
	}
	return status.SchemaVersion > status.ConfirmedVersion, status.SchemaVersion, nil
}

// ConfirmSchemaVersion durably records the current schema version.
// Callers invoke it only after the process has demonstrably run under
// that schema; recording earlier would mask a bad migration during
// crash-loop diagnosis.
func ConfirmSchemaVersion(sqldb *sql.DB) (int, error) {
	version, err := db.CurrentVersion(sqldb)
	if err != nil {
		return 0, err
	}
	if err := SetConfig(sqldb, ConfigConfirmedSchemaVersion, strconv.Itoa(version)); err != nil {
		return 0, err
	}
	return version, nil
}
