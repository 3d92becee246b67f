package keeptrack

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nondescript74/keeptrack-cli/internal/service"
)

var doctorFix bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run data integrity checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			report, err := service.RunDoctor(sqldb, doctorFix)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Duplicate entries: %d\n", report.DuplicateEntries)
			fmt.Fprintf(cmd.OutOrStdout(), "Orphan goal times: %d\n", report.OrphanGoalTimes)
			fmt.Fprintf(cmd.OutOrStdout(), "Frequency mismatches: %d\n", report.FrequencyMismatches)
			fmt.Fprintf(cmd.OutOrStdout(), "Dangling retired reminders: %d\n", report.DanglingRetired)
			if doctorFix {
				fmt.Fprintf(cmd.OutOrStdout(), "Fixed orphan rows: %d\n", report.FixedOrphanRows)
				fmt.Fprintf(cmd.OutOrStdout(), "Fixed retired rows: %d\n", report.FixedRetiredRows)
				// Re-check after fixes so exit status reflects final state.
				report, err = service.RunDoctor(sqldb, false)
				if err != nil {
					return err
				}
			}
			if report.DuplicateEntries > 0 || report.OrphanGoalTimes > 0 || report.FrequencyMismatches > 0 || report.DanglingRetired > 0 {
				return fmt.Errorf("doctor found integrity issues")
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Attempt safe auto-fixes")
}
