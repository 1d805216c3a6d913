package cmd

import (
	"fmt"
	"os"
	"time"

	deployer "github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/internal"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/internal/url"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/internal/util"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/report"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	whatIf     bool
	reportPath string
	maxDevices int
)

// The `deploy` command walks every Arista and Palo Alto device known to a
// PRTG server and creates the PSU sensors that are missing. Devices that
// already have them are skipped, so running it again is safe.
var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy PSU sensors to every matching device",
	Long: "Discovers the power supplies of every matching device over SNMP and creates one sensor per unit.\n" +
		"Devices that already have PSU sensors are skipped.\n\n" +
		"Examples:\n" +
		"  prtg-psu deploy --server https://prtg.example.com --whatIf\n" +
		"  prtg-psu deploy --server prtg.example.com --maxDevices 10 --reportPath ./reports/run.csv\n" +
		"  prtg-psu deploy --server prtg.example.com --filter 'Arista 7280'",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			ctx    = cmd.Context()
			server = viper.GetString("server")
			start  = time.Now()
		)
		if server == "" {
			return fmt.Errorf("--server is required")
		}
		client, err := connect(ctx, server)
		if err != nil {
			return err
		}

		params := deployer.ParamsFromConfig(client.URI)
		params.DryRun = whatIf
		params.MaxDevices = maxDevices
		if params.MaxDevices < 0 {
			params.MaxDevices = 0
		}

		reporter, err := deployer.DeployAll(ctx, client, params)
		printSummary(os.Stdout, reporter.Counters(), whatIf)
		if err != nil {
			return err
		}
		if whatIf {
			log.Info().Msg("dry run, no report written")
			return nil
		}

		path := reportPath
		if path == "" {
			path = util.DefaultReportPath(url.Hostname(client.URI), start)
		}
		if err := reporter.Write(path); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		log.Info().Str("path", path).Msg("report written")

		recordHistory(client.URI, reporter.Outcomes()...)
		return nil
	},
}

// recordHistory stores the outcomes of a run in the history cache. Failing
// to do so never fails the run.
func recordHistory(server string, outcomes ...report.Outcome) {
	if viper.GetBool("no-cache") {
		return
	}
	cachePath := viper.GetString("cache")
	if err := util.MakeOutputDirectory(cachePath); err != nil {
		log.Warn().Err(err).Msg("failed to create cache directory")
		return
	}
	runID := uuid.New()
	history := historyCache(server)
	if err := history.Insert(runID, outcomes...); err != nil {
		log.Warn().Err(err).Str("cache", cachePath).Msg("failed to record outcomes")
		return
	}
	log.Debug().Str("run", runID.String()).Str("cache", cachePath).Msg("recorded outcomes")
}

func init() {
	deployCmd.Flags().BoolVar(&whatIf, "whatIf", false, "Discover and count PSUs without creating sensors or writing a report")
	deployCmd.Flags().StringVar(&reportPath, "reportPath", "", "Set the report path (default psu-deployment-<host>-<timestamp>.csv)")
	deployCmd.Flags().IntVar(&maxDevices, "maxDevices", 0, "Process at most this many devices, sorted by name (0 is unlimited)")
	deployCmd.Flags().StringSlice("filter", deployer.DefaultFilters, "Set the device name patterns to deploy to")
	deployCmd.Flags().Duration("pacing", deployer.DefaultPacing, "Set the delay between sensor creation requests")
	deployCmd.Flags().Duration("discovery-timeout", deployer.DefaultDiscoveryTimeout, "Set the timeout for discovering the targets of a device")
	deployCmd.Flags().Bool("strict-vendor", false, "Match targets only with the rules of the device's vendor")

	checkBindFlagError(viper.BindPFlag("deploy.filter", deployCmd.Flags().Lookup("filter")))
	checkBindFlagError(viper.BindPFlag("deploy.pacing", deployCmd.Flags().Lookup("pacing")))
	checkBindFlagError(viper.BindPFlag("deploy.discovery-timeout", deployCmd.Flags().Lookup("discovery-timeout")))
	checkBindFlagError(viper.BindPFlag("match.strict-vendor", deployCmd.Flags().Lookup("strict-vendor")))

	rootCmd.AddCommand(deployCmd)
}
