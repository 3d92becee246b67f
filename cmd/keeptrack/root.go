package keeptrack

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "keeptrack",
	Short: "keeptrack logs medications, supplements, and hydration from your terminal",
	Long:  "keeptrack is a local-first intake tracker with recurring goals, timed reminders, one-time legacy migration, and portable backups.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database")
}
