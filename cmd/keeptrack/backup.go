package keeptrack

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nondescript74/keeptrack-cli/internal/service"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export and import portable backup bundles",
}

var (
	backupOut  string
	importFile string
	importMode string
)

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export entries, goals, and settings to a bundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(sqldb *sql.DB) error {
			bundle, err := service.ExportBackup(sqldb)
			if err != nil {
				return err
			}
			out := backupOut
			if out == "" {
				dbFile, err := resolveDBPath()
				if err != nil {
					return err
				}
				out = filepath.Join(filepath.Dir(dbFile), fmt.Sprintf("keeptrack-backup-%s.json", time.Now().Format("20060102-150405")))
			}
			if err := service.WriteBundle(out, bundle); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries and %d goals to %s\n", len(bundle.Entries), len(bundle.Goals), out)
			if bundle.Settings[service.ConfigCloudSyncEnabled] == "true" {
				fmt.Fprintln(cmd.OutOrStdout(), "Note: cloud sync is enabled but handled outside this tool")
			}
			return nil
		})
	},
}

var backupImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a bundle (merge or replace)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if importFile == "" {
			return fmt.Errorf("--file is required")
		}
		return withDB(func(sqldb *sql.DB) error {
			bundle, err := service.ReadBundle(importFile)
			if err != nil {
				return err
			}
			report, err := service.ImportBackup(sqldb, bundle, service.MergeStrategy(importMode))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Entries: %d inserted, %d skipped\n", report.EntriesInserted, report.EntriesSkipped)
			fmt.Fprintf(cmd.OutOrStdout(), "Goals: %d inserted, %d skipped\n", report.GoalsInserted, report.GoalsSkipped)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupExportCmd, backupImportCmd)

	backupExportCmd.Flags().StringVar(&backupOut, "out", "", "Bundle output path (default: alongside the database)")
	backupImportCmd.Flags().StringVar(&importFile, "file", "", "Bundle file path")
	backupImportCmd.Flags().StringVar(&importMode, "mode", "merge", "Merge strategy: merge or replace")
}
