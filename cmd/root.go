// The cmd package implements the interface for the prtg-psu CLI. The files
// contained in this package only contain implementations for handling CLI
// arguments and passing them to functions within the deployer's internal
// API.
//
// Each CLI subcommand that talks to PRTG has a corresponding internal
// routine that implements the command's functionality.
//
// For example:
//
//	cmd/deploy.go  --> internal/deploy.go ( deployer.DeployAll() )
//	cmd/device.go  --> internal/device.go ( deployer.DeployDevice() )
//	cmd/probe.go   --> pkg/snmp ( snmp.WalkInventory() )
//	cmd/history.go --> internal/cache/sqlite (doesn't talk to PRTG)
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	deployer "github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/internal"
	logger "github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/internal/log"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/internal/url"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/internal/util"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/internal/version"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/prtg"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	logLevel logger.LogLevel = logger.INFO
)

// The `root` command doesn't do anything on it's own except display
// a help message and then exits.
var rootCmd = &cobra.Command{
	Use:           "prtg-psu",
	Short:         "Bulk deploy PSU sensors to PRTG",
	Long:          "Discovers the power supplies of network devices registered in PRTG and creates one SNMP library sensor per unit.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.InitWithLogLevel(logLevel, viper.GetString("log-file"), viper.GetBool("no-color")); err != nil {
			return err
		}
		log.Debug().Msg(version.VersionInfo())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := logger.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// This Execute() function is called from main to run the CLI. Interrupting
// the process cancels the context passed to the commands; sensors that were
// already created are kept.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(InitializeConfig)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Set the config file path")
	rootCmd.PersistentFlags().StringP("server", "s", "", "Set the PRTG server URL")
	rootCmd.PersistentFlags().Var(&logLevel, "log-level", "Set the logging level (debug|info|warn|error|disabled|trace)")
	rootCmd.PersistentFlags().String("log-file", "", "Set a file to append JSON log records to")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored console output")
	rootCmd.PersistentFlags().StringP("username", "u", "", "Set the PRTG username")
	rootCmd.PersistentFlags().StringP("password", "p", "", "Set the PRTG password or passhash")
	rootCmd.PersistentFlags().String("api-token", "", "Set the PRTG API token")
	rootCmd.PersistentFlags().String("secrets-file", "secrets.json", "Set the secrets file with PRTG credentials")
	rootCmd.PersistentFlags().String("cache", defaultCachePath(), "Set the deployment history cache path")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Do not record outcomes in the history cache")
	rootCmd.PersistentFlags().DurationP("timeout", "t", 60*time.Second, "Set the timeout for single API requests")
	rootCmd.PersistentFlags().Bool("insecure", false, "Skip TLS certificate verification")

	// bind viper config flags with cobra
	checkBindFlagError(viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")))
	checkBindFlagError(viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server")))
	checkBindFlagError(viper.BindPFlag("log-file", rootCmd.PersistentFlags().Lookup("log-file")))
	checkBindFlagError(viper.BindPFlag("no-color", rootCmd.PersistentFlags().Lookup("no-color")))
	checkBindFlagError(viper.BindPFlag("username", rootCmd.PersistentFlags().Lookup("username")))
	checkBindFlagError(viper.BindPFlag("password", rootCmd.PersistentFlags().Lookup("password")))
	checkBindFlagError(viper.BindPFlag("api-token", rootCmd.PersistentFlags().Lookup("api-token")))
	checkBindFlagError(viper.BindEnv("api-token", "PRTG_API_TOKEN"))
	checkBindFlagError(viper.BindPFlag("secrets.file", rootCmd.PersistentFlags().Lookup("secrets-file")))
	checkBindFlagError(viper.BindPFlag("cache", rootCmd.PersistentFlags().Lookup("cache")))
	checkBindFlagError(viper.BindPFlag("no-cache", rootCmd.PersistentFlags().Lookup("no-cache")))
	checkBindFlagError(viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout")))
	checkBindFlagError(viper.BindPFlag("insecure", rootCmd.PersistentFlags().Lookup("insecure")))

	SetDefaults()
}

func checkBindFlagError(err error) {
	if err != nil {
		log.Error().Err(err).Msg("failed to bind cobra/viper flag")
	}
}

func defaultCachePath() string {
	return fmt.Sprintf("/tmp/%s/prtg-psu/history.db", util.GetCurrentUsername())
}

// InitializeConfig() initializes a new config object by loading it
// from a file given a non-empty string.
func InitializeConfig() {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
	if viper.GetString("config") != "" {
		if err := deployer.LoadConfig(viper.GetString("config")); err != nil {
			log.Error().Err(err).Msg("failed to load config")
		}
		return
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		configDir = "$HOME/.config"
	}
	viper.AddConfigPath(configDir + "/prtg-psu")
	viper.SetConfigName("config")
	// File type left unspecified; Viper will auto-parse based on extension
	// e.g. ~/.config/prtg-psu/config.yaml will parse as YAML
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Error().Err(err).Msg("failed to load config file")
		}
	}
}

// SetDefaults() resets all of the viper properties back to their
// default values.
func SetDefaults() {
	viper.SetDefault("timeout", 60*time.Second)
	viper.SetDefault("config", "")
	viper.SetDefault("insecure", false)
	viper.SetDefault("cache", defaultCachePath())
	viper.SetDefault("secrets.file", "secrets.json")
	deployer.SetDefaults()
	viper.SetDefault("snmp.version", "2c")
	viper.SetDefault("snmp.community", "public")
	viper.SetDefault("snmp.port", 161)
	viper.SetDefault("snmp.timeout", 5*time.Second)
	viper.SetDefault("snmp.retries", 1)
}

// connect resolves the credentials for server and opens an authenticated
// PRTG client. Credentials are checked before any request is made.
func connect(ctx context.Context, server string) (*prtg.Client, error) {
	uri, err := url.Sanitize(server)
	if err != nil {
		return nil, err
	}
	creds, err := util.LoadCredentials(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	client := prtg.NewClient(uri, creds,
		prtg.WithInsecure(viper.GetBool("insecure")),
		prtg.WithTimeout(viper.GetDuration("timeout")),
	)
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", uri, err)
	}
	log.Debug().Str("server", uri).Msg("connected to PRTG")
	return client, nil
}
