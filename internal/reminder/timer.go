package reminder

import "time"

// Payload is what the timer subsystem shows when a reminder surfaces.
type Payload struct {
	GoalName string
	Dosage   float64
	Unit     string
}

// Timer is the boundary to the external timer subsystem. The scheduler
// issues corrective schedule/cancel calls against it; it never assumes
// it knows the subsystem's pending set.
type Timer interface {
	ScheduleAt(identifier string, at time.Time, payload Payload) error
	Cancel(identifier string) error
}
