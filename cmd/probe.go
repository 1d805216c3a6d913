package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/internal/format"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/device"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/psu"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/snmp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	probeFormat = format.FORMAT_LIST
	probeVendor string
	probeAll    bool
)

// The `probe` command reads a device's entity inventory directly over SNMP
// and runs it through the matcher. It does not talk to PRTG, which makes
// it useful for checking new hardware before a deployment.
var probeCmd = &cobra.Command{
	Use:   "probe host",
	Short: "Match the PSUs of a device over SNMP without PRTG",
	Long: "Walks the ENTITY-MIB and ENTITY-STATE-MIB tables of a host and prints the power supplies the deployer would create sensors for.\n\n" +
		"Examples:\n" +
		"  prtg-psu probe 10.0.0.1 --snmp-community public\n" +
		"  prtg-psu probe 10.0.0.1 --snmp-version 3 --snmp-username monitor --snmp-auth-protocol SHA --snmp-auth-password secret\n" +
		"  prtg-psu probe 10.0.0.1 --all --format json > testdata/new-model.json",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		host := args[0]
		ctx, cancel := context.WithTimeout(cmd.Context(), viper.GetDuration("timeout"))
		defer cancel()

		targets, err := snmp.WalkInventory(ctx, host, snmpConfig())
		if err != nil {
			return err
		}
		log.Info().Str("host", host).Int("targets", len(targets)).Msg("walked inventory")

		if probeAll {
			return writeData(targets, probeFormat, func() {
				for _, t := range targets {
					fmt.Println(t.Parameter())
				}
			})
		}

		rules := psu.DefaultRules()
		if probeVendor != "" {
			rules = psu.RulesFor(device.Vendor(probeVendor))
		}
		candidates := psu.NewMatcher(rules...).Match(targets)
		if len(candidates) == 0 {
			log.Warn().Str("host", host).Msg("no PSU targets matched")
		}
		return writeData(candidates, probeFormat, func() {
			for _, c := range candidates {
				fmt.Printf("%-4d %-32s %s\n", c.SortKey, psu.SensorName(c.Label), c.Target.Value)
			}
		})
	},
}

func snmpConfig() snmp.Config {
	return snmp.Config{
		Port:    uint16(viper.GetUint("snmp.port")),
		Timeout: viper.GetDuration("snmp.timeout"),
		Retries: viper.GetInt("snmp.retries"),
		Credentials: snmp.Credentials{
			Version:         viper.GetString("snmp.version"),
			Community:       viper.GetString("snmp.community"),
			Username:        viper.GetString("snmp.username"),
			AuthProtocol:    viper.GetString("snmp.auth-protocol"),
			AuthPassword:    viper.GetString("snmp.auth-password"),
			PrivacyProtocol: viper.GetString("snmp.privacy-protocol"),
			PrivacyPassword: viper.GetString("snmp.privacy-password"),
		},
	}
}

// writeData prints data in a serialized format, or calls list for the
// plain list format.
func writeData(data any, f format.DataFormat, list func()) error {
	if f == format.FORMAT_LIST || f == format.FORMAT_CSV {
		list()
		return nil
	}
	b, err := format.Marshal(data, f)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(b))
	return err
}

func init() {
	probeCmd.Flags().Var(&probeFormat, "format", "Set the output format (list|json|yaml)")
	probeCmd.Flags().StringVar(&probeVendor, "vendor", "", "Match only with the rules of this vendor (Arista|Palo Alto)")
	probeCmd.Flags().BoolVar(&probeAll, "all", false, "Print every inventory target instead of the matched PSUs")
	probeCmd.Flags().String("snmp-version", "2c", "Set the SNMP version (1|2c|3)")
	probeCmd.Flags().String("snmp-community", "public", "Set the SNMP community for v1/v2c")
	probeCmd.Flags().Uint("snmp-port", 161, "Set the SNMP port")
	probeCmd.Flags().Duration("snmp-timeout", snmp.DefaultTimeout, "Set the timeout of a single SNMP request")
	probeCmd.Flags().Int("snmp-retries", snmp.DefaultRetries, "Set the number of SNMP retries")
	probeCmd.Flags().String("snmp-username", "", "Set the SNMPv3 user")
	probeCmd.Flags().String("snmp-auth-protocol", "", "Set the SNMPv3 authentication protocol (MD5|SHA|SHA224|SHA256|SHA384|SHA512)")
	probeCmd.Flags().String("snmp-auth-password", "", "Set the SNMPv3 authentication passphrase")
	probeCmd.Flags().String("snmp-privacy-protocol", "", "Set the SNMPv3 privacy protocol (DES|AES|AES192|AES256)")
	probeCmd.Flags().String("snmp-privacy-password", "", "Set the SNMPv3 privacy passphrase")

	for _, key := range []string{"version", "community", "port", "timeout", "retries", "username", "auth-protocol", "auth-password", "privacy-protocol", "privacy-password"} {
		checkBindFlagError(viper.BindPFlag("snmp."+key, probeCmd.Flags().Lookup("snmp-"+key)))
	}

	rootCmd.AddCommand(probeCmd)
}
