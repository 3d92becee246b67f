package reminder_test

import (
	"testing"
	"time"

	"github.com/nondescript74/keeptrack-cli/internal/model"
	"github.com/nondescript74/keeptrack-cli/internal/reminder"
	"github.com/nondescript74/keeptrack-cli/internal/service"
)

func TestDeliverySupersedesEarlierUnacknowledgedTicket(t *testing.T) {
	t.Parallel()
	sqldb := newTestDB(t)
	defer sqldb.Close()
	timer := &fakeTimer{}

	goalID := mustCreateGoal(t, sqldb, "Amlodipine", 5, "mg", "08:00", "12:00")
	morning := time.Date(2026, 4, 1, 7, 0, 0, 0, time.Local)
	if _, err := reminder.Recompute(sqldb, timer, morning); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	earlier := reminder.Ticket{GoalID: goalID, ScheduledAt: time.Date(2026, 4, 1, 8, 0, 0, 0, time.Local)}.Identifier()
	later := reminder.Ticket{GoalID: goalID, ScheduledAt: time.Date(2026, 4, 1, 12, 0, 0, 0, time.Local)}.Identifier()

	// The 08:00 ticket was never acted on; the 12:00 one fires.
	timer.reset()
	delivery, err := reminder.HandleDelivery(sqldb, timer, later, time.Date(2026, 4, 1, 12, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("handle delivery: %v", err)
	}
	if !delivery.Surface {
		t.Fatal("later ticket should surface")
	}
	if len(delivery.Superseded) != 1 || delivery.Superseded[0] != earlier {
		t.Fatalf("expected %s superseded, got %+v", earlier, delivery.Superseded)
	}
	if len(timer.cancelled) != 1 || timer.cancelled[0] != earlier {
		t.Fatalf("stale ticket not cancelled at the timer: %+v", timer.cancelled)
	}
	if got := retiredStatus(t, sqldb, earlier); got != "cancelled" {
		t.Fatalf("stale ticket retired as %q", got)
	}
	if countPending(t, sqldb) != 0 {
		t.Fatal("fired and superseded tickets should both leave the pending set")
	}
}

func TestDeliverySuppressedByEntryInsideTolerance(t *testing.T) {
	t.Parallel()
	sqldb := newTestDB(t)
	defer sqldb.Close()
	timer := &fakeTimer{}

	goalID := mustCreateGoal(t, sqldb, "Amlodipine", 5, "mg", "08:00")
	if _, err := reminder.Recompute(sqldb, timer, time.Date(2026, 4, 1, 7, 0, 0, 0, time.Local)); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	scheduledAt := time.Date(2026, 4, 1, 8, 0, 0, 0, time.Local)
	mustCreateEntry(t, sqldb, "Amlodipine", 5, "mg", scheduledAt.Add(5*time.Minute))

	identifier := reminder.Ticket{GoalID: goalID, ScheduledAt: scheduledAt}.Identifier()
	delivery, err := reminder.HandleDelivery(sqldb, timer, identifier, scheduledAt.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("handle delivery: %v", err)
	}
	if delivery.Surface || !delivery.Suppressed {
		t.Fatalf("dose already logged should suppress, got %+v", delivery)
	}
	if got := retiredStatus(t, sqldb, identifier); got != "resolved" {
		t.Fatalf("suppressed ticket retired as %q", got)
	}
}

func TestDeliverySurfacesWhenEntryOutsideTolerance(t *testing.T) {
	t.Parallel()
	sqldb := newTestDB(t)
	defer sqldb.Close()
	timer := &fakeTimer{}

	goalID := mustCreateGoal(t, sqldb, "Amlodipine", 5, "mg", "08:00")
	if _, err := reminder.Recompute(sqldb, timer, time.Date(2026, 4, 1, 7, 0, 0, 0, time.Local)); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	scheduledAt := time.Date(2026, 4, 1, 8, 0, 0, 0, time.Local)
	// Logged an hour earlier, well outside the correlation window.
	mustCreateEntry(t, sqldb, "Amlodipine", 5, "mg", scheduledAt.Add(-time.Hour))

	identifier := reminder.Ticket{GoalID: goalID, ScheduledAt: scheduledAt}.Identifier()
	delivery, err := reminder.HandleDelivery(sqldb, timer, identifier, scheduledAt)
	if err != nil {
		t.Fatalf("handle delivery: %v", err)
	}
	if !delivery.Surface || delivery.Suppressed {
		t.Fatalf("distant entry must not suppress, got %+v", delivery)
	}
	if delivery.Payload.GoalName != "Amlodipine" || delivery.Payload.Dosage != 5 {
		t.Fatalf("payload not filled: %+v", delivery.Payload)
	}
}

func TestDeliveryForDeletedGoalRetiresQuietly(t *testing.T) {
	t.Parallel()
	sqldb := newTestDB(t)
	defer sqldb.Close()
	timer := &fakeTimer{}

	goalID := mustCreateGoal(t, sqldb, "Amlodipine", 5, "mg", "08:00")
	if _, err := reminder.Recompute(sqldb, timer, time.Date(2026, 4, 1, 7, 0, 0, 0, time.Local)); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	identifier := timer.scheduled[0]

	if err := service.DeleteGoal(sqldb, goalID); err != nil {
		t.Fatalf("delete goal: %v", err)
	}

	delivery, err := reminder.HandleDelivery(sqldb, timer, identifier, time.Date(2026, 4, 1, 8, 0, 0, 0, time.Local))
	if err != nil {
		t.Fatalf("handle delivery: %v", err)
	}
	if delivery.Surface {
		t.Fatal("ticket for a deleted goal must not surface")
	}
	if got := retiredStatus(t, sqldb, identifier); got != "cancelled" {
		t.Fatalf("orphaned ticket retired as %q", got)
	}
}

func TestDeliveryOfRetiredTicketStaysSilent(t *testing.T) {
	t.Parallel()
	sqldb := newTestDB(t)
	defer sqldb.Close()
	timer := &fakeTimer{}

	goalID := mustCreateGoal(t, sqldb, "Amlodipine", 5, "mg", "08:00")
	scheduledAt := time.Date(2026, 4, 1, 8, 0, 0, 0, time.Local)
	identifier := reminder.Ticket{GoalID: goalID, ScheduledAt: scheduledAt}.Identifier()

	if _, err := reminder.HandleAction(sqldb, identifier, reminder.ActionCancel, scheduledAt); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// The external timer replays the delivery anyway.
	delivery, err := reminder.HandleDelivery(sqldb, timer, identifier, scheduledAt.Add(time.Minute))
	if err != nil {
		t.Fatalf("replayed delivery: %v", err)
	}
	if delivery.Surface || delivery.Suppressed {
		t.Fatalf("cancelled ticket must stay silent, got %+v", delivery)
	}
	if len(timer.scheduled) != 0 || len(timer.cancelled) != 0 {
		t.Fatalf("replayed delivery issued timer calls: %+v %+v", timer.scheduled, timer.cancelled)
	}

	// Same for a ticket resolved by confirm.
	resolved := reminder.Ticket{GoalID: goalID, ScheduledAt: scheduledAt.Add(12 * time.Hour)}.Identifier()
	if _, err := reminder.HandleAction(sqldb, resolved, reminder.ActionConfirm, scheduledAt.Add(12*time.Hour)); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	entriesBefore, err := service.ListEntries(sqldb, service.ListEntriesFilter{})
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}

	delivery, err = reminder.HandleDelivery(sqldb, timer, resolved, scheduledAt.Add(12*time.Hour+time.Minute))
	if err != nil {
		t.Fatalf("replayed resolved delivery: %v", err)
	}
	if delivery.Surface {
		t.Fatalf("resolved ticket must stay silent, got %+v", delivery)
	}
	entriesAfter, err := service.ListEntries(sqldb, service.ListEntriesFilter{})
	if err != nil {
		t.Fatalf("list entries after replay: %v", err)
	}
	if len(entriesAfter) != len(entriesBefore) {
		t.Fatalf("replayed delivery changed the store: %d -> %d entries", len(entriesBefore), len(entriesAfter))
	}
}

func TestConfirmCorrelatesWithRecentEntry(t *testing.T) {
	t.Parallel()
	sqldb := newTestDB(t)
	defer sqldb.Close()

	goalID := mustCreateGoal(t, sqldb, "Amlodipine", 5, "mg", "14:00")
	scheduledAt := time.Date(2026, 4, 1, 14, 0, 0, 0, time.Local)
	entryID := mustCreateEntry(t, sqldb, "Amlodipine", 5, "mg", scheduledAt.Add(-10*time.Minute))

	identifier := reminder.Ticket{GoalID: goalID, ScheduledAt: scheduledAt}.Identifier()
	result, err := reminder.HandleAction(sqldb, identifier, reminder.ActionConfirm, scheduledAt.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !result.Correlated || result.EntryID != entryID {
		t.Fatalf("expected correlation with %s, got %+v", entryID, result)
	}

	entries, err := service.ListEntries(sqldb, service.ListEntriesFilter{})
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("confirm must not duplicate the dose, got %d entries", len(entries))
	}
	if !entries[0].GoalMet {
		t.Fatal("correlated entry should be marked goal met")
	}
	if got := retiredStatus(t, sqldb, identifier); got != "resolved" {
		t.Fatalf("confirmed ticket retired as %q", got)
	}
}

func TestConfirmWithoutNearbyEntryCreatesOne(t *testing.T) {
	t.Parallel()
	sqldb := newTestDB(t)
	defer sqldb.Close()

	goalID := mustCreateGoal(t, sqldb, "Amlodipine", 5, "mg", "14:00")
	scheduledAt := time.Date(2026, 4, 1, 14, 0, 0, 0, time.Local)
	now := scheduledAt.Add(3 * time.Minute)

	identifier := reminder.Ticket{GoalID: goalID, ScheduledAt: scheduledAt}.Identifier()
	result, err := reminder.HandleAction(sqldb, identifier, reminder.ActionConfirm, now)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if result.Correlated || result.EntryID == "" {
		t.Fatalf("expected a fresh entry, got %+v", result)
	}

	entry, err := service.GetEntry(sqldb, result.EntryID)
	if err != nil {
		t.Fatalf("get created entry: %v", err)
	}
	if entry.SubstanceName != "Amlodipine" || entry.Amount != 5 || entry.Unit != "mg" {
		t.Fatalf("entry does not mirror the goal: %+v", entry)
	}
	if !entry.GoalMet {
		t.Fatal("confirmed entry should be goal met")
	}
	if entry.Source != model.SourceReminder {
		t.Fatalf("expected reminder source, got %q", entry.Source)
	}
	if !entry.TakenAt.Equal(now) {
		t.Fatalf("confirm logs at action time, got %v", entry.TakenAt)
	}
}

func TestCancelActionRetiresWithoutTouchingEntries(t *testing.T) {
	t.Parallel()
	sqldb := newTestDB(t)
	defer sqldb.Close()

	goalID := mustCreateGoal(t, sqldb, "Amlodipine", 5, "mg", "14:00")
	scheduledAt := time.Date(2026, 4, 1, 14, 0, 0, 0, time.Local)

	identifier := reminder.Ticket{GoalID: goalID, ScheduledAt: scheduledAt}.Identifier()
	if _, err := reminder.HandleAction(sqldb, identifier, reminder.ActionCancel, scheduledAt); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	entries, err := service.ListEntries(sqldb, service.ListEntriesFilter{})
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("cancel must not create entries, got %d", len(entries))
	}
	if got := retiredStatus(t, sqldb, identifier); got != "cancelled" {
		t.Fatalf("cancelled ticket retired as %q", got)
	}
}

func TestOpenActionReturnsPromptWithoutMutating(t *testing.T) {
	t.Parallel()
	sqldb := newTestDB(t)
	defer sqldb.Close()

	goalID := mustCreateGoal(t, sqldb, "Amlodipine", 5, "mg", "14:00")
	scheduledAt := time.Date(2026, 4, 1, 14, 0, 0, 0, time.Local)

	identifier := reminder.Ticket{GoalID: goalID, ScheduledAt: scheduledAt}.Identifier()
	result, err := reminder.HandleAction(sqldb, identifier, reminder.ActionOpen, scheduledAt)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if result.Prompt == nil || result.Prompt.GoalName != "Amlodipine" {
		t.Fatalf("expected a prompt, got %+v", result)
	}
	if got := retiredStatus(t, sqldb, identifier); got != "" {
		t.Fatalf("open alone must not retire, got %q", got)
	}

	// Declining the prompt also mutates nothing.
	if _, err := reminder.ConfirmOpenPrompt(sqldb, identifier, false, scheduledAt); err != nil {
		t.Fatalf("decline prompt: %v", err)
	}
	entries, err := service.ListEntries(sqldb, service.ListEntriesFilter{})
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("declined prompt created entries: %d", len(entries))
	}

	// Accepting logs the dose dated at the scheduled time.
	result, err = reminder.ConfirmOpenPrompt(sqldb, identifier, true, scheduledAt.Add(25*time.Minute))
	if err != nil {
		t.Fatalf("accept prompt: %v", err)
	}
	entry, err := service.GetEntry(sqldb, result.EntryID)
	if err != nil {
		t.Fatalf("get created entry: %v", err)
	}
	if !entry.TakenAt.Equal(scheduledAt) {
		t.Fatalf("accepted prompt should log at the scheduled time, got %v", entry.TakenAt)
	}
	if got := retiredStatus(t, sqldb, identifier); got != "resolved" {
		t.Fatalf("accepted ticket retired as %q", got)
	}
}

func TestUnknownActionIsANoOp(t *testing.T) {
	t.Parallel()
	sqldb := newTestDB(t)
	defer sqldb.Close()

	goalID := mustCreateGoal(t, sqldb, "Amlodipine", 5, "mg", "14:00")
	identifier := reminder.Ticket{
		GoalID:      goalID,
		ScheduledAt: time.Date(2026, 4, 1, 14, 0, 0, 0, time.Local),
	}.Identifier()

	result, err := reminder.HandleAction(sqldb, identifier, reminder.ActionUnknown, time.Now())
	if err != nil {
		t.Fatalf("unknown action: %v", err)
	}
	if result.EntryID != "" || result.Prompt != nil {
		t.Fatalf("unknown action mutated state: %+v", result)
	}
	if got := retiredStatus(t, sqldb, identifier); got != "" {
		t.Fatalf("unknown action retired the ticket: %q", got)
	}
}
