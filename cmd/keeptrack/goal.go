package keeptrack

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nondescript74/keeptrack-cli/internal/reminder"
	"github.com/nondescript74/keeptrack-cli/internal/service"
)

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Manage recurring intake goals",
}

var (
	goalName        string
	goalDescription string
	goalDosage      float64
	goalUnit        string
	goalTimes       string
	goalStart       string
	goalEnd         string
	goalShowAll     bool
)

// Reminder scheduling is cheap, so every goal edit recomputes it
// speculatively.
func recomputeAfterEdit(cmd *cobra.Command, sqldb *sql.DB) error {
	timer := &stdoutTimer{out: func(format string, a ...any) {
		fmt.Fprintf(cmd.OutOrStdout(), format, a...)
	}}
	_, err := reminder.Recompute(sqldb, timer, nowFunc())
	return err
}

var goalAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a recurring goal",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			id, err := service.CreateGoal(sqldb, service.GoalInput{
				Name:        goalName,
				Description: goalDescription,
				Dosage:      goalDosage,
				Unit:        goalUnit,
				Times:       splitTimes(goalTimes),
				StartDate:   goalStart,
				EndDate:     goalEnd,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created goal %s\n", id)
			return recomputeAfterEdit(cmd, sqldb)
		})
	},
}

var goalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List goals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			goals, err := service.ListGoals(sqldb, goalShowAll)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ID\tNAME\tDOSAGE\tTIMES\tACTIVE\tDONE")
			for _, g := range goals {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%.4g %s\t%s\t%t\t%t\n",
					g.ID, g.Name, g.Dosage, g.Unit, strings.Join(g.Times, ","), g.IsActive, g.IsCompleted)
			}
			return nil
		})
	},
}

var goalUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a goal definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			if err := service.UpdateGoal(sqldb, service.GoalInput{
				ID:          args[0],
				Name:        goalName,
				Description: goalDescription,
				Dosage:      goalDosage,
				Unit:        goalUnit,
				Times:       splitTimes(goalTimes),
				StartDate:   goalStart,
				EndDate:     goalEnd,
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated goal %s\n", args[0])
			return recomputeAfterEdit(cmd, sqldb)
		})
	},
}

var goalPauseCmd = &cobra.Command{
	Use:   "pause <id>",
	Short: "Deactivate a goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			if err := service.SetGoalActive(sqldb, args[0], false); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Paused goal %s\n", args[0])
			return recomputeAfterEdit(cmd, sqldb)
		})
	},
}

var goalResumeCmd = &cobra.Command{
	Use:   "resume <id>",
	Short: "Reactivate a goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			if err := service.SetGoalActive(sqldb, args[0], true); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Resumed goal %s\n", args[0])
			return recomputeAfterEdit(cmd, sqldb)
		})
	},
}

var goalDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a goal completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			if err := service.CompleteGoal(sqldb, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed goal %s\n", args[0])
			return recomputeAfterEdit(cmd, sqldb)
		})
	},
}

func init() {
	rootCmd.AddCommand(goalCmd)
	goalCmd.AddCommand(goalAddCmd, goalListCmd, goalUpdateCmd, goalPauseCmd, goalResumeCmd, goalDoneCmd)

	for _, c := range []*cobra.Command{goalAddCmd, goalUpdateCmd} {
		c.Flags().StringVar(&goalName, "name", "", "Goal name")
		c.Flags().StringVar(&goalDescription, "description", "", "Description")
		c.Flags().Float64Var(&goalDosage, "dosage", 0, "Dosage per intake")
		c.Flags().StringVar(&goalUnit, "unit", "", "Dosage unit (mg, ml, IU, ...)")
		c.Flags().StringVar(&goalTimes, "times", "", "Comma-separated daily times, e.g. 08:00,20:00")
		c.Flags().StringVar(&goalStart, "start", "", "Start date (YYYY-MM-DD)")
		c.Flags().StringVar(&goalEnd, "end", "", "End date (YYYY-MM-DD)")
	}
	goalListCmd.Flags().BoolVar(&goalShowAll, "all", false, "Include paused and completed goals")
}
