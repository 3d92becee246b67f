package keeptrack

import (
	"fmt"

	"github.com/spf13/cobra"
)

var version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the keeptrack version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "keeptrack %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
