package model

import "time"

// Entry is a single logged intake. Immutable once created except
// GoalMet, which flips false to true at most once when a reminder
// confirmation correlates to it.
type Entry struct {
	ID            string
	SubstanceName string
	Amount        float64
	Unit          string
	TakenAt       time.Time
	GoalMet       bool
	Source        string
	CreatedAt     time.Time
}

// Goal is a recurring intake schedule. Times holds one "HH:MM"
// time-of-day per daily occurrence slot; Frequency == len(Times).
type Goal struct {
	ID          string
	Name        string
	Description string
	Dosage      float64
	Unit        string
	Frequency   int
	Times       []string
	StartDate   string // YYYY-MM-DD, empty when unbounded
	EndDate     string
	IsActive    bool
	IsCompleted bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const (
	SourceManual   = "manual"
	SourceReminder = "reminder"
	SourceImport   = "import"
)
