package reminder

import (
	"database/sql"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/nondescript74/keeptrack-cli/internal/service"
)

// Daemon is the in-process stand-in for an OS timer subsystem: it polls
// the persisted schedule once a minute, runs due tickets through the
// reconciler, and surfaces reminders on the terminal via the log.
// Errors are logged and retried on the next tick, never fatal.
type Daemon struct {
	db        *sql.DB
	log       *logrus.Logger
	cron      *cron.Cron
	timer     Timer
	confirmed bool
}

func NewDaemon(db *sql.DB, log *logrus.Logger) *Daemon {
	d := &Daemon{
		db:   db,
		log:  log,
		cron: cron.New(),
	}
	d.timer = &logTimer{log: log}
	return d
}

func (d *Daemon) Start() error {
	if _, err := d.cron.AddFunc("@every 1m", d.Tick); err != nil {
		return err
	}
	d.Tick()
	d.cron.Start()
	return nil
}

func (d *Daemon) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
}

// Tick is one poll cycle: recompute the schedule, deliver whatever is
// due, and (once, after the first clean cycle) confirm the schema
// version the process is running under.
func (d *Daemon) Tick() {
	now := time.Now()

	if _, err := Recompute(d.db, d.timer, now); err != nil {
		d.log.WithError(err).Warn("reminder recompute failed, will retry next tick")
		return
	}

	pending, err := PendingTickets(d.db)
	if err != nil {
		d.log.WithError(err).Warn("reading pending reminders failed, will retry next tick")
		return
	}
	for _, t := range pending {
		if t.ScheduledAt.After(now) {
			continue
		}
		identifier := t.Identifier()
		delivery, err := HandleDelivery(d.db, d.timer, identifier, now)
		if err != nil {
			d.log.WithError(err).WithField("identifier", identifier).Warn("reminder delivery failed, will retry next tick")
			continue
		}
		for _, superseded := range delivery.Superseded {
			d.log.WithField("identifier", superseded).Info("cancelled superseded reminder")
		}
		if delivery.Suppressed {
			d.log.WithField("identifier", identifier).Info("reminder suppressed, dose already logged")
			continue
		}
		if delivery.Surface {
			d.log.WithFields(logrus.Fields{
				"identifier": identifier,
				"goal":       delivery.Payload.GoalName,
				"dosage":     delivery.Payload.Dosage,
				"unit":       delivery.Payload.Unit,
			}).Info("REMINDER due")
		}
	}

	if !d.confirmed {
		version, err := service.ConfirmSchemaVersion(d.db)
		if err != nil {
			d.log.WithError(err).Warn("schema version confirmation failed, will retry next tick")
			return
		}
		d.confirmed = true
		d.log.WithField("version", version).Debug("schema version confirmed")
	}
}

// logTimer narrates timer traffic. Delivery itself happens through the
// daemon's poll loop, so no real one-shot timers are armed.
type logTimer struct {
	log *logrus.Logger
}

func (t *logTimer) ScheduleAt(identifier string, at time.Time, payload Payload) error {
	t.log.WithFields(logrus.Fields{
		"identifier": identifier,
		"at":         at.Format(time.RFC3339),
		"goal":       payload.GoalName,
	}).Debug("reminder scheduled")
	return nil
}

func (t *logTimer) Cancel(identifier string) error {
	t.log.WithField("identifier", identifier).Debug("reminder cancelled")
	return nil
}
