package keeptrack

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nondescript74/keeptrack-cli/internal/service"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Legacy data migration and schema-version bookkeeping",
}

var (
	migrateLegacyPath string
	migrateConfirm    bool
	migrateResetForce bool
)

var migrateRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Migrate the legacy flat-file store (one-time, idempotent)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			path, err := resolveLegacyPath(migrateLegacyPath)
			if err != nil {
				return err
			}
			report, err := service.MigrateAllData(sqldb, path)
			if err != nil {
				return err
			}
			if report.AlreadyDone {
				fmt.Fprintln(cmd.OutOrStdout(), "Legacy migration already completed; nothing to do")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d entries and %d goals from %s\n", report.Entries, report.Goals, path)
			fmt.Fprintln(cmd.OutOrStdout(), "The legacy file was left in place; delete it once you trust the result")
			return nil
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration flags and schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			status, err := service.MigrationStatusInfo(sqldb)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Legacy migration completed: %t\n", status.LegacyCompleted)
			fmt.Fprintf(cmd.OutOrStdout(), "Schema version: %d (confirmed: %d)\n", status.SchemaVersion, status.ConfirmedVersion)
			if !migrateConfirm {
				return nil
			}
			// --confirm runs after the command itself has already worked
			// under the current schema, which is the earliest safe moment
			// to record it.
			version, err := service.ConfirmSchemaVersion(sqldb)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Confirmed schema version %d\n", version)
			return nil
		})
	},
}

var migrateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the legacy migration flag (developer escape hatch)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !migrateResetForce {
			return fmt.Errorf("refusing to reset without --force; a re-run will re-import every legacy record")
		}
		return withDB(func(sqldb *sql.DB) error {
			if err := service.ResetLegacyMigration(sqldb); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Legacy migration flag cleared")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateRunCmd, migrateStatusCmd, migrateResetCmd)

	migrateRunCmd.Flags().StringVar(&migrateLegacyPath, "legacy", "", "Path to the legacy flat-file store")
	migrateStatusCmd.Flags().BoolVar(&migrateConfirm, "confirm", false, "Record the current schema version as confirmed")
	migrateResetCmd.Flags().BoolVar(&migrateResetForce, "force", false, "Actually reset the flag")
}
