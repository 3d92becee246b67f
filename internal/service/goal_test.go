package service_test

import (
	"testing"
	"time"

	"github.com/nondescript74/keeptrack-cli/internal/service"
)

func TestCreateGoalWithTimes(t *testing.T) {
	t.Parallel()
	sqldb := newTestDB(t)
	defer sqldb.Close()

	id := mustCreateGoal(t, sqldb, "Amlodipine", 5, "mg", "08:00", "20:00")

	g, err := service.GetGoal(sqldb, id)
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	if g == nil {
		t.Fatal("goal not found")
	}
	if g.Frequency != 2 {
		t.Fatalf("expected frequency 2, got %d", g.Frequency)
	}
	if len(g.Times) != 2 || g.Times[0] != "08:00" || g.Times[1] != "20:00" {
		t.Fatalf("unexpected times %v", g.Times)
	}
}

func TestCreateGoalValidation(t *testing.T) {
	t.Parallel()
	sqldb := newTestDB(t)
	defer sqldb.Close()

	if _, err := service.CreateGoal(sqldb, service.GoalInput{Name: "X", Dosage: 1, Unit: "mg"}); err == nil {
		t.Fatal("expected error for zero times")
	}
	if _, err := service.CreateGoal(sqldb, service.GoalInput{Name: "X", Dosage: 1, Unit: "mg", Times: []string{"08:00", "12:00", "16:00", "20:00"}}); err == nil {
		t.Fatal("expected error for four times")
	}
	if _, err := service.CreateGoal(sqldb, service.GoalInput{Name: "X", Dosage: 1, Unit: "mg", Times: []string{"25:00"}}); err == nil {
		t.Fatal("expected error for invalid time of day")
	}
	if _, err := service.CreateGoal(sqldb, service.GoalInput{
		Name: "X", Dosage: 1, Unit: "mg", Times: []string{"08:00"},
		StartDate: "2026-05-01", EndDate: "2026-04-01",
	}); err == nil {
		t.Fatal("expected error for end before start")
	}
}

func TestActiveGoalsRespectsWindowAndFlags(t *testing.T) {
	t.Parallel()
	sqldb := newTestDB(t)
	defer sqldb.Close()

	always := mustCreateGoal(t, sqldb, "Water", 250, "ml", "09:00")

	windowed, err := service.CreateGoal(sqldb, service.GoalInput{
		Name: "Course of antibiotics", Dosage: 500, Unit: "mg", Times: []string{"08:00"},
		StartDate: "2026-03-01", EndDate: "2026-03-07",
	})
	if err != nil {
		t.Fatalf("create windowed goal: %v", err)
	}
	paused := mustCreateGoal(t, sqldb, "Melatonin", 3, "mg", "22:00")
	if err := service.SetGoalActive(sqldb, paused, false); err != nil {
		t.Fatalf("pause goal: %v", err)
	}
	completed := mustCreateGoal(t, sqldb, "Iron", 20, "mg", "08:00")
	if err := service.CompleteGoal(sqldb, completed); err != nil {
		t.Fatalf("complete goal: %v", err)
	}

	inWindow := time.Date(2026, 3, 5, 10, 0, 0, 0, time.Local)
	goals, err := service.ActiveGoals(sqldb, inWindow)
	if err != nil {
		t.Fatalf("active goals in window: %v", err)
	}
	if len(goals) != 2 {
		t.Fatalf("expected 2 active goals on 2026-03-05, got %d", len(goals))
	}

	afterWindow := time.Date(2026, 3, 20, 10, 0, 0, 0, time.Local)
	goals, err = service.ActiveGoals(sqldb, afterWindow)
	if err != nil {
		t.Fatalf("active goals after window: %v", err)
	}
	if len(goals) != 1 || goals[0].ID != always {
		t.Fatalf("expected only the unbounded goal after the window, got %+v", goals)
	}
	_ = windowed
}

func TestUpdateGoalReplacesTimes(t *testing.T) {
	t.Parallel()
	sqldb := newTestDB(t)
	defer sqldb.Close()

	id := mustCreateGoal(t, sqldb, "Magnesium", 400, "mg", "20:00")

	if err := service.UpdateGoal(sqldb, service.GoalInput{
		ID: id, Name: "Magnesium", Dosage: 200, Unit: "mg",
		Times: []string{"08:00", "14:00", "20:00"},
	}); err != nil {
		t.Fatalf("update goal: %v", err)
	}

	g, err := service.GetGoal(sqldb, id)
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	if g.Frequency != 3 || len(g.Times) != 3 {
		t.Fatalf("expected three slots after update, got %+v", g)
	}
	if g.Dosage != 200 {
		t.Fatalf("expected dosage 200, got %v", g.Dosage)
	}
}
