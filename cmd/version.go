package cmd

import (
	"fmt"

	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flag("short").Value.String() == "true" {
			fmt.Println(version.Version)
		} else {
			version.PrintVersionInfo()
		}
	},
}

// SetVersionInfo is called from main with the values injected by the
// release build.
func SetVersionInfo(v, commit, date string) {
	if v != "" {
		version.Version = v
	}
	if commit != "" {
		version.GitCommit = commit
	}
	if date != "" {
		version.BuildTime = date
	}
	rootCmd.Version = version.Version
}

func init() {
	versionCmd.Flags().Bool("short", false, "show only the version")
	rootCmd.AddCommand(versionCmd)
}
