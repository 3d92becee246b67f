package service

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nondescript74/keeptrack-cli/internal/model"
)

type GoalInput struct {
	ID          string // minted when empty
	Name        string
	Description string
	Dosage      float64
	Unit        string
	Times       []string // "HH:MM" per occurrence slot, 1..3
	StartDate   string
	EndDate     string
}

func validateGoalInput(in *GoalInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return fmt.Errorf("goal name is required")
	}
	if err := validatePositiveFloat("dosage", in.Dosage); err != nil {
		return err
	}
	if strings.TrimSpace(in.Unit) == "" {
		return fmt.Errorf("unit is required")
	}
	if len(in.Times) < 1 || len(in.Times) > 3 {
		return fmt.Errorf("goal needs between 1 and 3 daily times, got %d", len(in.Times))
	}
	for i, tod := range in.Times {
		if _, _, err := parseTimeOfDay(tod); err != nil {
			return err
		}
		in.Times[i] = strings.TrimSpace(tod)
	}
	if err := validateDate("start date", in.StartDate); err != nil {
		return err
	}
	if err := validateDate("end date", in.EndDate); err != nil {
		return err
	}
	if in.StartDate != "" && in.EndDate != "" && in.EndDate < in.StartDate {
		return fmt.Errorf("end date %s is before start date %s", in.EndDate, in.StartDate)
	}
	return nil
}

func CreateGoal(db *sql.DB, in GoalInput) (string, error) {
	if err := validateGoalInput(&in); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.ID) == "" {
		in.ID = uuid.NewString()
	}

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin goal tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
INSERT INTO goals(id, name, description, dosage, unit, frequency, start_date, end_date)
VALUES(?, ?, ?, ?, ?, ?, ?, ?)
`, in.ID, in.Name, strings.TrimSpace(in.Description), in.Dosage, strings.TrimSpace(in.Unit), len(in.Times), nullableString(in.StartDate), nullableString(in.EndDate)); err != nil {
		return "", fmt.Errorf("insert goal %q: %w", in.Name, err)
	}
	if err := replaceGoalTimes(tx, in.ID, in.Times); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit goal %q: %w", in.Name, err)
	}
	return in.ID, nil
}

func UpdateGoal(db *sql.DB, in GoalInput) error {
	if strings.TrimSpace(in.ID) == "" {
		return fmt.Errorf("goal id is required")
	}
	if err := validateGoalInput(&in); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin goal tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
UPDATE goals
SET name = ?, description = ?, dosage = ?, unit = ?, frequency = ?, start_date = ?, end_date = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`, in.Name, strings.TrimSpace(in.Description), in.Dosage, strings.TrimSpace(in.Unit), len(in.Times), nullableString(in.StartDate), nullableString(in.EndDate), in.ID)
	if err != nil {
		return fmt.Errorf("update goal %s: %w", in.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected for goal %s: %w", in.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("goal %s not found", in.ID)
	}
	if err := replaceGoalTimes(tx, in.ID, in.Times); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit goal %s: %w", in.ID, err)
	}
	return nil
}

func replaceGoalTimes(tx *sql.Tx, goalID string, times []string) error {
	if _, err := tx.Exec(`DELETE FROM goal_times WHERE goal_id = ?`, goalID); err != nil {
		return fmt.Errorf("clear goal times for %s: %w", goalID, err)
	}
	for slot, tod := range times {
		if _, err := tx.Exec(`INSERT INTO goal_times(goal_id, slot, time_of_day) VALUES(?, ?, ?)`, goalID, slot, tod); err != nil {
			return fmt.Errorf("insert goal time %s slot %d: %w", goalID, slot, err)
		}
	}
	return nil
}

func GetGoal(db *sql.DB, id string) (*model.Goal, error) {
	row := db.QueryRow(`
SELECT id, name, description, dosage, unit, frequency, IFNULL(start_date,''), IFNULL(end_date,''), is_active, is_completed
FROM goals WHERE id = ?
`, id)
	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get goal %s: %w", id, err)
	}
	if err := attachGoalTimes(db, []*model.Goal{g}); err != nil {
		return nil, err
	}
	return g, nil
}

func ListGoals(db *sql.DB, includeInactive bool) ([]model.Goal, error) {
	query := `
SELECT id, name, description, dosage, unit, frequency, IFNULL(start_date,''), IFNULL(end_date,''), is_active, is_completed
FROM goals`
	if !includeInactive {
		query += ` WHERE is_active = 1 AND is_completed = 0`
	}
	query += ` ORDER BY name ASC`
	return queryGoals(db, query)
}

// ActiveGoals returns goals eligible for reminders at ref: active, not
// completed, and inside the optional start/end window.
func ActiveGoals(db *sql.DB, ref time.Time) ([]model.Goal, error) {
	date := ref.Format("2006-01-02")
	return queryGoals(db, `
SELECT id, name, description, dosage, unit, frequency, IFNULL(start_date,''), IFNULL(end_date,''), is_active, is_completed
FROM goals
WHERE is_active = 1 AND is_completed = 0
  AND (start_date IS NULL OR start_date <= ?)
  AND (end_date IS NULL OR end_date >= ?)
ORDER BY name ASC
`, date, date)
}

func SetGoalActive(db *sql.DB, id string, active bool) error {
	return setGoalFlag(db, id, "is_active", active)
}

func CompleteGoal(db *sql.DB, id string) error {
	return setGoalFlag(db, id, "is_completed", true)
}

func setGoalFlag(db *sql.DB, id, column string, value bool) error {
	res, err := db.Exec(`UPDATE goals SET `+column+` = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, boolToInt(value), id)
	if err != nil {
		return fmt.Errorf("update goal %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected for goal %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("goal %s not found", id)
	}
	return nil
}

func DeleteGoal(db *sql.DB, id string) error {
	res, err := db.Exec(`DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected for goal %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("goal %s not found", id)
	}
	return nil
}

func queryGoals(db *sql.DB, query string, args ...any) ([]model.Goal, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	goals := make([]*model.Goal, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	if err := attachGoalTimes(db, goals); err != nil {
		return nil, err
	}
	out := make([]model.Goal, 0, len(goals))
	for _, g := range goals {
		out = append(out, *g)
	}
	return out, nil
}

func scanGoal(row rowScanner) (*model.Goal, error) {
	var g model.Goal
	var isActive, isCompleted int
	if err := row.Scan(&g.ID, &g.Name, &g.Description, &g.Dosage, &g.Unit, &g.Frequency, &g.StartDate, &g.EndDate, &isActive, &isCompleted); err != nil {
		return nil, err
	}
	g.IsActive = isActive != 0
	g.IsCompleted = isCompleted != 0
	return &g, nil
}

func attachGoalTimes(db *sql.DB, goals []*model.Goal) error {
	if len(goals) == 0 {
		return nil
	}
	byID := make(map[string]*model.Goal, len(goals))
	for _, g := range goals {
		byID[g.ID] = g
	}
	rows, err := db.Query(`SELECT goal_id, time_of_day FROM goal_times ORDER BY goal_id, slot ASC`)
	if err != nil {
		return fmt.Errorf("list goal times: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var goalID, tod string
		if err := rows.Scan(&goalID, &tod); err != nil {
			return fmt.Errorf("scan goal time: %w", err)
		}
		if g, ok := byID[goalID]; ok {
			g.Times = append(g.Times, tod)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate goal times: %w", err)
	}
	return nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return strings.TrimSpace(value)
}
