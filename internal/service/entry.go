package service

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nondescript74/keeptrack-cli/internal/model"
)

// CorrelationTolerance bounds how far apart a logged intake and a
// reminder's scheduled time may be while still counting as the same
// dose. Shared by suppression, confirmation, and the today view.
const CorrelationTolerance = 30 * time.Minute

type CreateEntryInput struct {
	ID            string // minted when empty
	SubstanceName string
	Amount        float64
	Unit          string
	TakenAt       time.Time
	GoalMet       bool
	Source        string
}

type ListEntriesFilter struct {
	Date      string
	FromDate  string
	ToDate    string
	Substance string
	Limit     int
}

func CreateEntry(db *sql.DB, in CreateEntryInput) (string, error) {
	in.SubstanceName = strings.TrimSpace(in.SubstanceName)
	if in.SubstanceName == "" {
		return "", fmt.Errorf("substance name is required")
	}
	if err := validatePositiveFloat("amount", in.Amount); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Unit) == "" {
		return "", fmt.Errorf("unit is required")
	}
	if in.TakenAt.IsZero() {
		in.TakenAt = time.Now()
	}
	if strings.TrimSpace(in.ID) == "" {
		in.ID = uuid.NewString()
	}
	if strings.TrimSpace(in.Source) == "" {
		in.Source = model.SourceManual
	}

	_, err := db.Exec(`
INSERT INTO entries(id, substance_name, amount, unit, taken_at, goal_met, source)
VALUES(?, ?, ?, ?, ?, ?, ?)
`, in.ID, in.SubstanceName, in.Amount, strings.TrimSpace(in.Unit), in.TakenAt.Format(time.RFC3339), boolToInt(in.GoalMet), in.Source)
	if err != nil {
		return "", fmt.Errorf("insert entry: %w", err)
	}
	return in.ID, nil
}

func GetEntry(db *sql.DB, id string) (*model.Entry, error) {
	row := db.QueryRow(`
SELECT id, substance_name, amount, unit, taken_at, goal_met, source
FROM entries WHERE id = ?
`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry %s: %w", id, err)
	}
	return e, nil
}

func ListEntries(db *sql.DB, f ListEntriesFilter) ([]model.Entry, error) {
	query := `
SELECT id, substance_name, amount, unit, taken_at, goal_met, source
FROM entries
WHERE 1=1`
	args := make([]any, 0)

	if strings.TrimSpace(f.Date) != "" {
		start, end, err := dayBounds(f.Date)
		if err != nil {
			return nil, err
		}
		query += ` AND taken_at >= ? AND taken_at < ?`
		args = append(args, start, end)
	}
	if strings.TrimSpace(f.FromDate) != "" {
		from, err := parseDateStart(f.FromDate)
		if err != nil {
			return nil, err
		}
		query += ` AND taken_at >= ?`
		args = append(args, from)
	}
	if strings.TrimSpace(f.ToDate) != "" {
		to, err := parseDateEndExclusive(f.ToDate)
		if err != nil {
			return nil, err
		}
		query += ` AND taken_at < ?`
		args = append(args, to)
	}
	if strings.TrimSpace(f.Substance) != "" {
		query += ` AND instr(lower(substance_name), ?) > 0`
		args = append(args, normalizeName(f.Substance))
	}
	query += ` ORDER BY taken_at DESC`

	if f.Limit <= 0 {
		f.Limit = 50
	}
	query += ` LIMIT ?`
	args = append(args, f.Limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func DeleteEntry(db *sql.DB, id string) error {
	res, err := db.Exec(`DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected for entry %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("entry %s not found", id)
	}
	return nil
}

// MarkGoalMet flips goal_met false to true. An entry already marked is
// left untouched; the flag never moves back.
func MarkGoalMet(db *sql.DB, id string) error {
	res, err := db.Exec(`UPDATE entries SET goal_met = 1 WHERE id = ? AND goal_met = 0`, id)
	if err != nil {
		return fmt.Errorf("mark entry %s goal met: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected for entry %s: %w", id, err)
	}
	if affected == 1 {
		return nil
	}
	var exists int
	if err := db.QueryRow(`SELECT 1 FROM entries WHERE id = ?`, id).Scan(&exists); err == sql.ErrNoRows {
		return fmt.Errorf("entry %s not found", id)
	} else if err != nil {
		return fmt.Errorf("check entry %s: %w", id, err)
	}
	return nil
}

// FindEntryNear returns the entry closest to ref whose substance name
// matches name by case-insensitive substring in either direction and
// whose taken_at lies strictly inside the tolerance window. A missing
// match is an ordinary (nil, nil) outcome, not an error.
//
// Substring matching is deliberately loose so that "Vitamin D 1000IU"
// still counts for a "Vitamin D" goal; it can false-positive on
// unrelated substances that share a name fragment.
func FindEntryNear(db *sql.DB, name string, ref time.Time, tolerance time.Duration) (*model.Entry, error) {
	want := normalizeName(name)
	if want == "" {
		return nil, fmt.Errorf("substance name is required")
	}
	lo := ref.Add(-tolerance).Format(time.RFC3339)
	hi := ref.Add(tolerance).Format(time.RFC3339)

	rows, err := db.Query(`
SELECT id, substance_name, amount, unit, taken_at, goal_met, source
FROM entries
WHERE taken_at > ? AND taken_at < ?
ORDER BY taken_at ASC
`, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("query entries near %s: %w", ref.Format(time.RFC3339), err)
	}
	defer rows.Close()

	var best *model.Entry
	var bestDelta time.Duration
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry near %s: %w", ref.Format(time.RFC3339), err)
		}
		got := normalizeName(e.SubstanceName)
		if !strings.Contains(got, want) && !strings.Contains(want, got) {
			continue
		}
		delta := e.TakenAt.Sub(ref)
		if delta < 0 {
			delta = -delta
		}
		if best == nil || delta < bestDelta {
			best = e
			bestDelta = delta
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries near %s: %w", ref.Format(time.RFC3339), err)
	}
	return best, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*model.Entry, error) {
	var e model.Entry
	var takenAtRaw string
	var goalMet int
	if err := row.Scan(&e.ID, &e.SubstanceName, &e.Amount, &e.Unit, &takenAtRaw, &goalMet, &e.Source); err != nil {
		return nil, err
	}
	takenAt, err := time.Parse(time.RFC3339, takenAtRaw)
	if err != nil {
		return nil, fmt.Errorf("parse taken_at for entry %s: %w", e.ID, err)
	}
	e.TakenAt = takenAt
	e.GoalMet = goalMet != 0
	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func dayBounds(date string) (string, string, error) {
	start, err := parseDateStart(date)
	if err != nil {
		return "", "", err
	}
	t, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return "", "", fmt.Errorf("parse RFC3339 %q: %w", start, err)
	}
	return start, t.Add(24 * time.Hour).Format(time.RFC3339), nil
}

func parseDateStart(value string) (string, error) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(value), time.Local)
	if err != nil {
		return "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return t.Format(time.RFC3339), nil
}

func parseDateEndExclusive(value string) (string, error) {
	start, err := parseDateStart(value)
	if err != nil {
		return "", err
	}
	t, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return "", fmt.Errorf("parse end date %q: %w", value, err)
	}
	return t.Add(24 * time.Hour).Format(time.RFC3339), nil
}
