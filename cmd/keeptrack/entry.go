package keeptrack

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nondescript74/keeptrack-cli/internal/service"
)

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Log and inspect intake entries",
}

var (
	entryName    string
	entryAmount  float64
	entryUnit    string
	entryDate    string
	entryTime    string
	entryGoalMet bool

	listDate      string
	listFrom      string
	listTo        string
	listSubstance string
	listLimit     int
)

var entryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Log an intake",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			takenAt, err := parseDateTimeOrNow(entryDate, entryTime)
			if err != nil {
				return err
			}
			id, err := service.CreateEntry(sqldb, service.CreateEntryInput{
				SubstanceName: entryName,
				Amount:        entryAmount,
				Unit:          entryUnit,
				TakenAt:       takenAt,
				GoalMet:       entryGoalMet,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged entry %s\n", id)
			return nil
		})
	},
}

var entryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List intake entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			entries, err := service.ListEntries(sqldb, service.ListEntriesFilter{
				Date:      listDate,
				FromDate:  listFrom,
				ToDate:    listTo,
				Substance: listSubstance,
				Limit:     listLimit,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ID\tSUBSTANCE\tAMOUNT\tTAKEN\tGOAL MET")
			for _, e := range entries {
				met := "no"
				if e.GoalMet {
					met = "yes"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%.4g %s\t%s\t%s\n", e.ID, e.SubstanceName, e.Amount, e.Unit, e.TakenAt.Format(time.RFC3339), met)
			}
			return nil
		})
	},
}

var entryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			if err := service.DeleteEntry(sqldb, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted entry %s\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(entryCmd)
	entryCmd.AddCommand(entryAddCmd, entryListCmd, entryDeleteCmd)

	entryAddCmd.Flags().StringVar(&entryName, "name", "", "Substance name")
	entryAddCmd.Flags().Float64Var(&entryAmount, "amount", 0, "Amount taken")
	entryAddCmd.Flags().StringVar(&entryUnit, "unit", "", "Amount unit (mg, ml, IU, ...)")
	entryAddCmd.Flags().StringVar(&entryDate, "date", "", "Date (YYYY-MM-DD, default today)")
	entryAddCmd.Flags().StringVar(&entryTime, "time", "", "Time (HH:MM, default now)")
	entryAddCmd.Flags().BoolVar(&entryGoalMet, "goal-met", false, "Mark the goal as met")

	entryListCmd.Flags().StringVar(&listDate, "date", "", "Single day (YYYY-MM-DD)")
	entryListCmd.Flags().StringVar(&listFrom, "from", "", "Start date (YYYY-MM-DD)")
	entryListCmd.Flags().StringVar(&listTo, "to", "", "End date inclusive (YYYY-MM-DD)")
	entryListCmd.Flags().StringVar(&listSubstance, "substance", "", "Filter by substance name fragment")
	entryListCmd.Flags().IntVar(&listLimit, "limit", 50, "Max rows")
}
