package cmd

import (
	"fmt"
	"os"

	deployer "github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/internal"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	deviceID int
	psuCount int
)

// The `device` command provisions a single device. It is meant for
// re-trying devices that failed during a bulk run.
var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Deploy PSU sensors to a single device",
	Long: "Discovers the power supplies of one device and creates at most --psuCount sensors.\n\n" +
		"Examples:\n" +
		"  prtg-psu device --server prtg.example.com --deviceId 2001\n" +
		"  prtg-psu device --server prtg.example.com --deviceId 2001 --psuCount 2 --whatIf",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			ctx    = cmd.Context()
			server = viper.GetString("server")
		)
		if server == "" {
			return fmt.Errorf("--server is required")
		}
		if deviceID <= 0 {
			return fmt.Errorf("--deviceId is required")
		}
		client, err := connect(ctx, server)
		if err != nil {
			return err
		}

		params := deployer.ParamsFromConfig(client.URI)
		params.DryRun = whatIf
		outcome, err := deployer.DeployDevice(ctx, client, params, deviceID, psuCount)
		if err != nil {
			return err
		}

		printOutcome(os.Stdout, outcome)
		if !whatIf {
			recordHistory(client.URI, outcome)
		}
		log.Debug().Int("device", deviceID).Str("status", string(outcome.Status)).Msg("done")
		return nil
	},
}

func init() {
	deviceCmd.Flags().IntVar(&deviceID, "deviceId", 0, "Set the PRTG object id of the device (required)")
	deviceCmd.Flags().IntVar(&psuCount, "psuCount", deployer.DefaultPsuCount, fmt.Sprintf("Create at most this many sensors (1-%d)", deployer.MaxPsuCount))
	deviceCmd.Flags().BoolVar(&whatIf, "whatIf", false, "Discover and count PSUs without creating sensors")

	rootCmd.AddCommand(deviceCmd)
}
