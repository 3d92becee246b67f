package keeptrack

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nondescript74/keeptrack-cli/internal/service"
)

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's schedule against what was logged",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			view, err := service.TodaySummary(sqldb, nowFunc())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schedule for %s\n", view.Date)
			for _, occ := range view.Occurrences {
				mark := " "
				if occ.Logged {
					mark = "x"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s  %s %.4g %s\n", mark, occ.ScheduledAt.Format("15:04"), occ.GoalName, occ.Dosage, occ.Unit)
			}
			if view.Unscheduled > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Plus %d entries outside the schedule\n", view.Unscheduled)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(todayCmd)
}
