// Package deployer implements the routines that provision power-supply
// sensors on the devices of a PRTG server.
package deployer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/device"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/prtg"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/psu"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/report"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
	"golang.org/x/time/rate"
)

const (
	MessageExistingSensors = "PSU sensors already exist"
	MessageNoTargets       = "No PSU targets discovered"
)

// MonitoringClient is the part of the PRTG API the deployer needs.
type MonitoringClient interface {
	Devices(ctx context.Context, filter string) ([]prtg.Device, error)
	DeviceByID(ctx context.Context, id int) (prtg.Device, error)
	Sensors(ctx context.Context, deviceID int) ([]prtg.Sensor, error)
	DiscoverTargets(ctx context.Context, deviceID int, library string) ([]prtg.SensorTarget, error)
	CreateSensor(ctx context.Context, deviceID int, spec prtg.SensorSpec) (int, error)
}

// DeployParams is a collection of common parameters passed to the CLI
// for the 'deploy' and 'device' subcommands.
type DeployParams struct {
	Server           string        // set by the 'server' flag
	Library          string        // SNMP library file used to probe devices
	Filters          []string      // device name patterns to deploy to
	MaxDevices       int           // set with 'maxDevices', 0 means unlimited
	MaxSensors       int           // cap on sensors attempted per device, 0 means all
	DryRun           bool          // set with 'whatIf'
	Pacing           time.Duration // delay between sensor creation calls
	DiscoveryTimeout time.Duration // deadline for a single device probe
	Priority         int           // priority of the created sensors
	StrictVendor     bool          // match only with the rules of the device's vendor
}

// ListDevices returns the devices matching any of the filters. Devices
// returned by more than one filter are only listed once.
func ListDevices(ctx context.Context, client MonitoringClient, filters []string) ([]prtg.Device, error) {
	var (
		devices = []prtg.Device{}
		seen    = map[int]bool{}
	)
	for _, filter := range filters {
		found, err := client.Devices(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list devices matching '%s': %w", filter, err)
		}
		for _, d := range found {
			if seen[d.ID] {
				continue
			}
			seen[d.ID] = true
			devices = append(devices, d)
		}
	}
	return devices, nil
}

// SelectDevices sorts devices by name and keeps the first max of them.
func SelectDevices(devices []prtg.Device, max int) []prtg.Device {
	selected := slices.Clone(devices)
	slices.SortStableFunc(selected, func(a, b prtg.Device) int {
		return strings.Compare(a.Name, b.Name)
	})
	if max > 0 && len(selected) > max {
		selected = selected[:max]
	}
	return selected
}

// DeployAll provisions PSU sensors on every selected device and returns
// the outcome of each one. A device that fails is recorded and the run
// moves on; only failing to list the devices, or the context being
// cancelled, returns an error.
func DeployAll(ctx context.Context, client MonitoringClient, params *DeployParams) (*report.Reporter, error) {
	reporter := report.NewReporter()
	if params == nil {
		return reporter, fmt.Errorf("no deploy parameters provided")
	}

	devices, err := ListDevices(ctx, client, params.Filters)
	if err != nil {
		return reporter, err
	}
	total := len(devices)
	devices = SelectDevices(devices, params.MaxDevices)
	log.Info().
		Int("found", total).
		Int("selected", len(devices)).
		Bool("dry-run", params.DryRun).
		Msg("starting deployment")

	limiter := newLimiter(params.Pacing)
	for i, d := range devices {
		if err := ctx.Err(); err != nil {
			return reporter, fmt.Errorf("deployment interrupted after %d of %d device(s): %w", i, len(devices), err)
		}
		log.Info().Msgf("[%d/%d] processing %s (%d)", i+1, len(devices), d.Name, d.ID)
		reporter.Add(processDevice(ctx, client, params, limiter, d))
	}
	return reporter, nil
}

func newLimiter(pacing time.Duration) *rate.Limiter {
	if pacing <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(pacing), 1)
}

// processDevice runs a single device through presence check, discovery,
// matching and creation. It always produces exactly one outcome.
func processDevice(ctx context.Context, client MonitoringClient, params *DeployParams, limiter *rate.Limiter, d prtg.Device) report.Outcome {
	vendor, model := device.Classify(d.Name)
	outcome := report.Outcome{
		Timestamp:  time.Now(),
		DeviceID:   d.ID,
		DeviceName: d.Name,
		Vendor:     vendor.String(),
		Model:      model,
		Group:      d.Group,
		SensorIDs:  []int{},
	}
	logger := log.With().Int("device", d.ID).Str("name", d.Name).Logger()
	fail := func(err error) report.Outcome {
		logger.Error().Err(err).Msg("failed to process device")
		outcome.Status = report.StatusError
		outcome.Message = err.Error()
		return outcome
	}

	sensors, err := client.Sensors(ctx, d.ID)
	if err != nil {
		return fail(fmt.Errorf("failed to list sensors: %w", err))
	}
	names := make([]string, 0, len(sensors))
	for _, s := range sensors {
		names = append(names, s.Name)
	}
	if psu.HasExistingSensors(names) {
		logger.Info().Msg("skipping device with existing PSU sensors")
		outcome.Status = report.StatusSkipped
		outcome.Message = MessageExistingSensors
		return outcome
	}

	targets, err := discover(ctx, client, params, d.ID)
	if err != nil {
		return fail(err)
	}

	rules := psu.DefaultRules()
	if params.StrictVendor {
		rules = psu.RulesFor(vendor)
	}
	candidates := psu.NewMatcher(rules...).Match(targets)
	outcome.PsusFound = len(candidates)
	logger.Debug().Int("targets", len(targets)).Int("candidates", len(candidates)).Msg("matched inventory targets")
	if len(candidates) == 0 {
		logger.Warn().Msg("no PSU targets discovered")
		outcome.Status = report.StatusSkipped
		outcome.Message = MessageNoTargets
		return outcome
	}
	if params.MaxSensors > 0 && len(candidates) > params.MaxSensors {
		candidates = candidates[:params.MaxSensors]
	}

	if params.DryRun {
		for _, c := range candidates {
			logger.Info().Str("label", c.Label).Str("oid", c.Target.Value).Msg("would create sensor")
		}
		outcome.Status = report.StatusNoAction
		outcome.Message = fmt.Sprintf("dry run: %d sensor(s) would be created", len(candidates))
		return outcome
	}

	for _, c := range candidates {
		if err := limiter.Wait(ctx); err != nil {
			logger.Warn().Err(err).Msg("stopped creating sensors")
			break
		}
		spec := prtg.SensorSpec{
			Name:            psu.SensorName(c.Label),
			Library:         params.Library,
			InterfaceNumber: 1,
			Target:          c.Target,
			Tags:            prtg.DefaultTags,
			Priority:        params.Priority,
		}
		id, err := client.CreateSensor(ctx, d.ID, spec)
		if err != nil {
			logger.Error().Err(err).Str("label", c.Label).Msg("failed to create sensor")
			continue
		}
		logger.Info().Int("sensor", id).Str("label", c.Label).Msg("created sensor")
		outcome.SensorIDs = append(outcome.SensorIDs, id)
		outcome.SensorsCreated++
	}

	if outcome.SensorsCreated > 0 {
		outcome.Status = report.StatusSuccess
		outcome.Message = fmt.Sprintf("Created %d of %d sensor(s)", outcome.SensorsCreated, len(candidates))
	} else {
		outcome.Status = report.StatusNoAction
		outcome.Message = fmt.Sprintf("No sensors created (%d attempted)", len(candidates))
	}
	return outcome
}

// discover probes a device under its own deadline. Discovery is never
// retried.
func discover(ctx context.Context, client MonitoringClient, params *DeployParams, deviceID int) ([]prtg.SensorTarget, error) {
	if params.DiscoveryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.DiscoveryTimeout)
		defer cancel()
	}
	targets, err := client.DiscoverTargets(ctx, deviceID, params.Library)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("discovery timed out after %s: %w", params.DiscoveryTimeout, err)
		}
		return nil, fmt.Errorf("failed to discover targets: %w", err)
	}
	return targets, nil
}
