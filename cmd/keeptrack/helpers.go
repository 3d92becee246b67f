package keeptrack

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nondescript74/keeptrack-cli/internal/app"
	"github.com/nondescript74/keeptrack-cli/internal/db"
	"github.com/nondescript74/keeptrack-cli/internal/reminder"
	"github.com/nondescript74/keeptrack-cli/internal/service"
)

var nowFunc = time.Now

func resolveDBPath() (string, error) {
	if strings.TrimSpace(dbPath) != "" {
		return dbPath, nil
	}
	if env := strings.TrimSpace(os.Getenv("KEEPTRACK_DB")); env != "" {
		return env, nil
	}
	return app.DefaultDBPath()
}

func resolveLegacyPath(flag string) (string, error) {
	if strings.TrimSpace(flag) != "" {
		return flag, nil
	}
	if env := strings.TrimSpace(os.Getenv("KEEPTRACK_LEGACY")); env != "" {
		return env, nil
	}
	return app.DefaultLegacyPath()
}

func withDB(run func(*sql.DB) error) error {
	path, err := resolveDBPath()
	if err != nil {
		return err
	}
	if err := app.EnsureDBDir(path); err != nil {
		return err
	}
	sqldb, err := db.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", service.ErrStoreUnavailable, err)
	}
	defer sqldb.Close()

	if err := db.ApplyMigrations(sqldb); err != nil {
		return fmt.Errorf("%w: %v", service.ErrStoreUnavailable, err)
	}
	return run(sqldb)
}

func parseDateTimeOrNow(date, timeStr string) (time.Time, error) {
	date = strings.TrimSpace(date)
	timeStr = strings.TrimSpace(timeStr)
	if date == "" && timeStr == "" {
		return time.Now(), nil
	}
	if date == "" {
		return time.Time{}, fmt.Errorf("--date is required when --time is set")
	}
	if timeStr == "" {
		t, err := time.ParseInLocation("2006-01-02", date, time.Local)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --date %q (expected YYYY-MM-DD)", date)
		}
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+timeStr, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date/--time (expected YYYY-MM-DD and HH:MM)")
	}
	return t, nil
}

func splitTimes(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// stdoutTimer plays the timer subsystem for one-shot commands: the
// schedule/cancel instructions are printed instead of armed.
type stdoutTimer struct {
	out func(format string, a ...any)
}

func (t *stdoutTimer) ScheduleAt(identifier string, at time.Time, payload reminder.Payload) error {
	t.out("schedule %s at %s (%s %.4g %s)\n", identifier, at.Format(time.RFC3339), payload.GoalName, payload.Dosage, payload.Unit)
	return nil
}

func (t *stdoutTimer) Cancel(identifier string) error {
	t.out("cancel %s\n", identifier)
	return nil
}
