package keeptrack

import (
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nondescript74/keeptrack-cli/internal/reminder"
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Schedule and reconcile timed reminders",
}

var (
	remindAction  string
	remindAccept  bool
	remindDecline bool
	daemonVerbose bool
)

var remindRecomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute the pending reminder set from active goals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			timer := &stdoutTimer{out: func(format string, a ...any) {
				fmt.Fprintf(cmd.OutOrStdout(), format, a...)
			}}
			report, err := reminder.Recompute(sqldb, timer, nowFunc())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scheduled: %d  Cancelled: %d  Pending: %d\n", report.Scheduled, report.Cancelled, report.Pending)
			return nil
		})
	},
}

var remindListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending reminder tickets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			tickets, err := reminder.PendingTickets(sqldb)
			if err != nil {
				return err
			}
			sort.Slice(tickets, func(i, j int) bool {
				return tickets[i].ScheduledAt.Before(tickets[j].ScheduledAt)
			})
			fmt.Fprintln(cmd.OutOrStdout(), "IDENTIFIER\tSCHEDULED")
			for _, t := range tickets {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", t.Identifier(), t.ScheduledAt.Format(time.RFC3339))
			}
			return nil
		})
	},
}

var remindFireCmd = &cobra.Command{
	Use:   "fire <identifier>",
	Short: "Run delivery-time reconciliation for a ticket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			timer := &stdoutTimer{out: func(format string, a ...any) {
				fmt.Fprintf(cmd.OutOrStdout(), format, a...)
			}}
			delivery, err := reminder.HandleDelivery(sqldb, timer, args[0], nowFunc())
			if err != nil {
				return err
			}
			for _, s := range delivery.Superseded {
				fmt.Fprintf(cmd.OutOrStdout(), "superseded %s\n", s)
			}
			switch {
			case delivery.Suppressed:
				fmt.Fprintln(cmd.OutOrStdout(), "suppressed: dose already logged")
			case delivery.Surface:
				fmt.Fprintf(cmd.OutOrStdout(), "REMINDER: %s %.4g %s\n", delivery.Payload.GoalName, delivery.Payload.Dosage, delivery.Payload.Unit)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to surface")
			}
			return nil
		})
	},
}

var remindActCmd = &cobra.Command{
	Use:   "act <identifier>",
	Short: "Apply a user action (confirm, cancel, open) to a surfaced reminder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			action := reminder.ParseAction(remindAction)
			result, err := reminder.HandleAction(sqldb, args[0], action, nowFunc())
			if err != nil {
				return err
			}
			switch {
			case result.Prompt != nil:
				fmt.Fprintf(cmd.OutOrStdout(), "open: %s scheduled %s (confirm with 'remind resolve')\n",
					result.Prompt.GoalName, result.Prompt.ScheduledAt.Format(time.RFC3339))
			case result.Correlated:
				fmt.Fprintf(cmd.OutOrStdout(), "marked existing entry %s goal-met\n", result.EntryID)
			case result.EntryID != "":
				fmt.Fprintf(cmd.OutOrStdout(), "logged entry %s\n", result.EntryID)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "%s: no store change\n", result.Action)
			}
			return nil
		})
	},
}

var remindResolveCmd = &cobra.Command{
	Use:   "resolve <identifier>",
	Short: "Finish an opened reminder after the user decided",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			if remindAccept == remindDecline {
				return fmt.Errorf("exactly one of --accept or --decline is required")
			}
			result, err := reminder.ConfirmOpenPrompt(sqldb, args[0], remindAccept, nowFunc())
			if err != nil {
				return err
			}
			switch {
			case result.Correlated:
				fmt.Fprintf(cmd.OutOrStdout(), "marked existing entry %s goal-met\n", result.EntryID)
			case result.EntryID != "":
				fmt.Fprintf(cmd.OutOrStdout(), "logged entry %s\n", result.EntryID)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "declined: no store change")
			}
			return nil
		})
	},
}

var remindDaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the reminder daemon (polls every minute)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			log := logrus.New()
			if daemonVerbose {
				log.SetLevel(logrus.DebugLevel)
			}
			d := reminder.NewDaemon(sqldb, log)
			if err := d.Start(); err != nil {
				return err
			}
			log.Info("reminder daemon running, ctrl-c to stop")

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			d.Stop()
			log.Info("reminder daemon stopped")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(remindCmd)
	remindCmd.AddCommand(remindRecomputeCmd, remindListCmd, remindFireCmd, remindActCmd, remindResolveCmd, remindDaemonCmd)

	remindActCmd.Flags().StringVar(&remindAction, "action", "open", "User action: confirm, cancel, or open")
	remindResolveCmd.Flags().BoolVar(&remindAccept, "accept", false, "User confirmed the intake")
	remindResolveCmd.Flags().BoolVar(&remindDecline, "decline", false, "User declined the intake")
	remindDaemonCmd.Flags().BoolVar(&daemonVerbose, "verbose", false, "Debug logging")
}
