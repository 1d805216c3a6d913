package psu

import (
	"fmt"
	"regexp"
)

// Arista sensors are named "PowerSupply1" while Palo Alto ones read
// "Power Supply #1", so the space is optional.
var presencePattern = regexp.MustCompile(`ent state.*Power ?Supply`)

// HasExistingSensors reports whether any of a device's sensor names shows
// that its power supplies are already monitored.
func HasExistingSensors(names []string) bool {
	for _, name := range names {
		if presencePattern.MatchString(name) {
			return true
		}
	}
	return false
}

// SensorName is the display name given to the sensor of a unit. It always
// satisfies HasExistingSensors so that a second run skips the device.
func SensorName(label string) string {
	return fmt.Sprintf("ent state: %s - ent state oper", label)
}
