package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// BackupFormatVersion tags exported bundles. Import rejects anything it
// does not recognize without touching the store.
const BackupFormatVersion = 1

type BackupEntry struct {
	ID            string  `json:"id"`
	SubstanceName string  `json:"substance_name"`
	Amount        float64 `json:"amount"`
	Unit          string  `json:"unit"`
	TakenAt       string  `json:"taken_at"`
	GoalMet       bool    `json:"goal_met"`
	Source        string  `json:"source,omitempty"`
}

type BackupGoal struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Dosage      float64  `json:"dosage"`
	Unit        string   `json:"unit"`
	Frequency   int      `json:"frequency"`
	Times       []string `json:"times"`
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	IsActive    bool     `json:"is_active"`
	IsCompleted bool     `json:"is_completed"`
}

type Bundle struct {
	FormatVersion int               `json:"format_version"`
	ExportedAt    string            `json:"exported_at"`
	Entries       []BackupEntry     `json:"entries"`
	Goals         []BackupGoal      `json:"goals"`
	Settings      map[string]string `json:"settings"`
}

type MergeStrategy string

const (
	MergeStrategyMerge   MergeStrategy = "merge"
	MergeStrategyReplace MergeStrategy = "replace"
)

type ImportReport struct {
	EntriesInserted int
	EntriesSkipped  int
	GoalsInserted   int
	GoalsSkipped    int
}

// ExportBackup snapshots entries, goals, and settings inside one read
// transaction so writes landing mid-export never appear partially.
func ExportBackup(db *sql.DB) (*Bundle, error) {
	tx, err := db.BeginTx(context.Background(), &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin export tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	out := &Bundle{
		FormatVersion: BackupFormatVersion,
		ExportedAt:    time.Now().Format(time.RFC3339),
		Entries:       []BackupEntry{},
		Goals:         []BackupGoal{},
		Settings:      map[string]string{},
	}

	entryRows, err := tx.Query(`
SELECT id, substance_name, amount, unit, taken_at, goal_met, source
FROM entries ORDER BY taken_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("export entries: %w", err)
	}
	for entryRows.Next() {
		var item BackupEntry
		var goalMet int
		if err := entryRows.Scan(&item.ID, &item.SubstanceName, &item.Amount, &item.Unit, &item.TakenAt, &goalMet, &item.Source); err != nil {
			_ = entryRows.Close()
			return nil, fmt.Errorf("scan export entry: %w", err)
		}
		item.GoalMet = goalMet != 0
		out.Entries = append(out.Entries, item)
	}
	_ = entryRows.Close()

	goalRows, err := tx.Query(`
SELECT id, name, description, dosage, unit, frequency, IFNULL(start_date,''), IFNULL(end_date,''), is_active, is_completed
FROM goals ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("export goals: %w", err)
	}
	goalIndex := map[string]int{}
	for goalRows.Next() {
		var item BackupGoal
		var isActive, isCompleted int
		if err := goalRows.Scan(&item.ID, &item.Name, &item.Description, &item.Dosage, &item.Unit, &item.Frequency, &item.StartDate, &item.EndDate, &isActive, &isCompleted); err != nil {
			_ = goalRows.Close()
			return nil, fmt.Errorf("scan export goal: %w", err)
		}
		item.IsActive = isActive != 0
		item.IsCompleted = isCompleted != 0
		goalIndex[item.ID] = len(out.Goals)
		out.Goals = append(out.Goals, item)
	}
	_ = goalRows.Close()

	timeRows, err := tx.Query(`SELECT goal_id, time_of_day FROM goal_times ORDER BY goal_id, slot ASC`)
	if err != nil {
		return nil, fmt.Errorf("export goal times: %w", err)
	}
	for timeRows.Next() {
		var goalID, tod string
		if err := timeRows.Scan(&goalID, &tod); err != nil {
			_ = timeRows.Close()
			return nil, fmt.Errorf("scan export goal time: %w", err)
		}
		if idx, ok := goalIndex[goalID]; ok {
			out.Goals[idx].Times = append(out.Goals[idx].Times, tod)
		}
	}
	_ = timeRows.Close()

	settingRows, err := tx.Query(`SELECT key, value FROM app_config ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("export settings: %w", err)
	}
	for settingRows.Next() {
		var key, value string
		if err := settingRows.Scan(&key, &value); err != nil {
			_ = settingRows.Close()
			return nil, fmt.Errorf("scan export setting: %w", err)
		}
		out.Settings[key] = value
	}
	_ = settingRows.Close()

	return out, nil
}

// ImportBackup applies a bundle under the given merge strategy as one
// atomic unit. Merge unions by id with existing rows winning; replace
// wipes entries and goals first. Bundle settings come along too:
// replace overwrites matching keys, merge only fills missing ones.
// Migration bookkeeping keys are never imported, so restoring a backup
// cannot fake a completed migration or schema confirmation. Every
// failure path rolls back to the pre-import state.
func ImportBackup(db *sql.DB, bundle *Bundle, strategy MergeStrategy) (ImportReport, error) {
	report := ImportReport{}
	if bundle == nil {
		return report, fmt.Errorf("%w: nil bundle", ErrInvalidBackupFormat)
	}
	if bundle.FormatVersion != BackupFormatVersion {
		return report, fmt.Errorf("%w: unsupported format version %d", ErrInvalidBackupFormat, bundle.FormatVersion)
	}
	switch strategy {
	case MergeStrategyMerge, MergeStrategyReplace:
	default:
		return report, fmt.Errorf("unknown merge strategy %q", strategy)
	}

	tx, err := db.Begin()
	if err != nil {
		return report, fmt.Errorf("%w: begin import tx: %v", ErrImportFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	if strategy == MergeStrategyReplace {
		for _, stmt := range []string{
			`DELETE FROM goal_times`,
			`DELETE FROM goals`,
			`DELETE FROM entries`,
		} {
			if _, err := tx.Exec(stmt); err != nil {
				return report, fmt.Errorf("%w: clear store for replace: %v", ErrImportFailed, err)
			}
		}
	}

	for _, e := range bundle.Entries {
		if strings.TrimSpace(e.ID) == "" {
			return report, fmt.Errorf("%w: entry without id", ErrInvalidBackupFormat)
		}
		exists, err := rowExists(tx, `SELECT 1 FROM entries WHERE id = ?`, e.ID)
		if err != nil {
			return report, fmt.Errorf("%w: check entry %s: %v", ErrImportFailed, e.ID, err)
		}
		if exists {
			report.EntriesSkipped++
			continue
		}
		source := e.Source
		if strings.TrimSpace(source) == "" {
			source = "import"
		}
		if _, err := tx.Exec(`
INSERT INTO entries(id, substance_name, amount, unit, taken_at, goal_met, source)
VALUES(?, ?, ?, ?, ?, ?, ?)
`, e.ID, e.SubstanceName, e.Amount, e.Unit, e.TakenAt, boolToInt(e.GoalMet), source); err != nil {
			return report, fmt.Errorf("%w: import entry %s: %v", ErrImportFailed, e.ID, err)
		}
		report.EntriesInserted++
	}

	for _, g := range bundle.Goals {
		if strings.TrimSpace(g.ID) == "" {
			return report, fmt.Errorf("%w: goal without id", ErrInvalidBackupFormat)
		}
		exists, err := rowExists(tx, `SELECT 1 FROM goals WHERE id = ?`, g.ID)
		if err != nil {
			return report, fmt.Errorf("%w: check goal %s: %v", ErrImportFailed, g.ID, err)
		}
		if exists {
			report.GoalsSkipped++
			continue
		}
		if _, err := tx.Exec(`
INSERT INTO goals(id, name, description, dosage, unit, frequency, start_date, end_date, is_active, is_completed)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, g.ID, g.Name, g.Description, g.Dosage, g.Unit, g.Frequency, nullableString(g.StartDate), nullableString(g.EndDate), boolToInt(g.IsActive), boolToInt(g.IsCompleted)); err != nil {
			return report, fmt.Errorf("%w: import goal %s: %v", ErrImportFailed, g.ID, err)
		}
		for slot, tod := range g.Times {
			if _, err := tx.Exec(`INSERT INTO goal_times(goal_id, slot, time_of_day) VALUES(?, ?, ?)`, g.ID, slot, tod); err != nil {
				return report, fmt.Errorf("%w: import goal %s slot %d: %v", ErrImportFailed, g.ID, slot, err)
			}
		}
		report.GoalsInserted++
	}

	for key, value := range bundle.Settings {
		switch key {
		case ConfigLegacyMigrationDone, ConfigConfirmedSchemaVersion:
			continue
		}
		var stmt string
		if strategy == MergeStrategyReplace {
			stmt = `
INSERT INTO app_config(key, value, updated_at)
VALUES(?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`
		} else {
			stmt = `INSERT OR IGNORE INTO app_config(key, value) VALUES(?, ?)`
		}
		if _, err := tx.Exec(stmt, key, value); err != nil {
			return report, fmt.Errorf("%w: import setting %s: %v", ErrImportFailed, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return report, fmt.Errorf("%w: commit import: %v", ErrImportFailed, err)
	}
	return report, nil
}

func rowExists(tx *sql.Tx, query string, args ...any) (bool, error) {
	var one int
	err := tx.QueryRow(query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func WriteBundle(path string, bundle *Bundle) error {
	raw, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("encode backup bundle: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write backup bundle %s: %w", path, err)
	}
	return nil
}

func ReadBundle(path string) (*Bundle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backup bundle %s: %w", path, err)
	}
	var bundle Bundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackupFormat, err)
	}
	return &bundle, nil
}
