package deployer

import (
	"fmt"
	"time"

	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/internal/util"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/prtg"
	"github.com/spf13/viper"
)

const (
	DefaultLibrary          = "ENTITY-STATE-MIB.oidlib"
	DefaultPacing           = 2 * time.Second
	DefaultDiscoveryTimeout = 10 * time.Minute
	DefaultPsuCount         = 4
	MaxPsuCount             = 64
)

// DefaultFilters select the device families the deployer knows how to
// match.
var DefaultFilters = []string{"Arista", "Palo Alto"}

// LoadConfig() will load a YAML config file at the specified path. There are some general
// considerations about how this is done with spf13/viper:
//
// 1. There are intentionally no search paths set, so config path has to be set explicitly
// 2. No data will be written to the config file from the tool
// 3. Parameters passed as CLI flags and envirnoment variables should always have
// precedence over values set in the config.
func LoadConfig(path string) error {
	dir, filename, ext := util.SplitPathForViper(path)
	viper.AddConfigPath(dir)
	viper.SetConfigName(filename)
	viper.SetConfigType(ext)
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return fmt.Errorf("config file not found: %w", err)
		} else {
			return fmt.Errorf("failed to load config file: %w", err)
		}
	}

	return nil
}

// SetDefaults() resets the deployment properties back to their default
// values.
func SetDefaults() {
	viper.SetDefault("deploy.library", DefaultLibrary)
	viper.SetDefault("deploy.pacing", DefaultPacing)
	viper.SetDefault("deploy.discovery-timeout", DefaultDiscoveryTimeout)
	viper.SetDefault("deploy.priority", prtg.DefaultPriority)
	viper.SetDefault("deploy.filter", DefaultFilters)
	viper.SetDefault("match.strict-vendor", false)
}

// ParamsFromConfig fills the tunables of a deployment from viper. Values
// that are out of range fall back to their defaults.
func ParamsFromConfig(server string) *DeployParams {
	params := &DeployParams{
		Server:           server,
		Library:          viper.GetString("deploy.library"),
		Filters:          viper.GetStringSlice("deploy.filter"),
		Pacing:           viper.GetDuration("deploy.pacing"),
		DiscoveryTimeout: viper.GetDuration("deploy.discovery-timeout"),
		Priority:         viper.GetInt("deploy.priority"),
		StrictVendor:     viper.GetBool("match.strict-vendor"),
	}
	if params.Library == "" {
		params.Library = DefaultLibrary
	}
	if len(params.Filters) == 0 {
		params.Filters = DefaultFilters
	}
	if params.Pacing < 0 {
		params.Pacing = 0
	}
	if params.DiscoveryTimeout <= 0 {
		params.DiscoveryTimeout = DefaultDiscoveryTimeout
	}
	if params.Priority < 1 || params.Priority > 5 {
		params.Priority = prtg.DefaultPriority
	}
	return params
}
