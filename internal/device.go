package deployer

import (
	"context"
	"fmt"

	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/report"
	"github.com/cznic/mathutil"
)

// ClampPsuCount bounds the number of sensors attempted on a single device.
func ClampPsuCount(n int) int {
	return mathutil.Clamp(n, 1, MaxPsuCount)
}

// DeployDevice provisions PSU sensors on a single device, attempting at
// most psuCount of them. Unlike DeployAll, a device that cannot be found
// is returned as an error rather than recorded.
func DeployDevice(ctx context.Context, client MonitoringClient, params *DeployParams, deviceID int, psuCount int) (report.Outcome, error) {
	if params == nil {
		return report.Outcome{}, fmt.Errorf("no deploy parameters provided")
	}
	d, err := client.DeviceByID(ctx, deviceID)
	if err != nil {
		return report.Outcome{}, fmt.Errorf("failed to get device %d: %w", deviceID, err)
	}

	p := *params
	p.MaxSensors = ClampPsuCount(psuCount)
	return processDevice(ctx, client, &p, newLimiter(p.Pacing), d), nil
}
