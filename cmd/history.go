package cmd

import (
	"fmt"
	"os"

	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/internal/cache"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/internal/cache/sqlite"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/internal/format"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/internal/url"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/report"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var historyFormat = format.FORMAT_LIST

// The `history` command provides an easy way to show the outcomes that
// were recorded in the cache database by previous runs.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List outcomes recorded by previous runs",
	Long: "Prints the outcome of every device processed by previous deploy and device runs, newest first.\n\n" +
		"Examples:\n" +
		"  prtg-psu history\n" +
		"  prtg-psu history --server prtg.example.com --format csv\n" +
		"  prtg-psu history --cache ./history.db --format json",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		server := viper.GetString("server")
		if server != "" {
			normalized, err := url.Sanitize(server)
			if err != nil {
				return err
			}
			server = normalized
		}
		outcomes, err := historyCache(server).Get()
		if err != nil {
			return fmt.Errorf("failed to get outcomes: %w", err)
		}
		return report.WriteOutcomes(os.Stdout, outcomes, historyFormat)
	},
}

var historyRemoveCmd = &cobra.Command{
	Use:   "remove runIDs...",
	Short: "Remove runs from the history cache",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		history := historyCache("")
		for _, arg := range args {
			runID, err := uuid.Parse(arg)
			if err != nil {
				return fmt.Errorf("invalid run id '%s': %w", arg, err)
			}
			if err := history.Delete(runID); err != nil {
				return err
			}
			log.Info().Str("run", runID.String()).Msg("removed run from history")
		}
		return nil
	},
}

// historyCache opens the outcome cache set with --cache. An empty server
// selects the outcomes of every server.
func historyCache(server string) cache.Cache[report.Outcome] {
	return sqlite.OutcomeCache{Path: viper.GetString("cache"), Server: server}
}

func init() {
	historyCmd.Flags().Var(&historyFormat, "format", "Set the output format (list|csv|json|yaml)")
	historyCmd.AddCommand(historyRemoveCmd)
	rootCmd.AddCommand(historyCmd)
}
