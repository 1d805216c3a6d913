package psu

import (
	"regexp"

	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/device"
)

// Rule describes how one vendor lays out its power supplies in the
// ENTITY-STATE-MIB. Supporting a new vendor means adding a rule, not
// changing the matcher.
type Rule struct {
	Vendor device.Vendor
	// MainEntry is applied to the final OID segment and accepts only the
	// primary oper-state leaf of a unit, not its sub-sensors.
	MainEntry *regexp.Regexp
	// Label finds the unit label in the target's description.
	Label *regexp.Regexp
	// Order extracts the unit index from a label (first submatch).
	Order *regexp.Regexp
}

var ruleTable = []Rule{
	{
		// PSUs are indexed in thousands (100601000, 100602000, ...),
		// everything below them is a sub-sensor of the unit.
		Vendor:    device.Arista,
		MainEntry: regexp.MustCompile(`^\d*[1-9]000$`),
		Label:     regexp.MustCompile(`PowerSupply\d+`),
		Order:     regexp.MustCompile(`PowerSupply(\d+)`),
	},
	{
		Vendor:    device.PaloAlto,
		MainEntry: regexp.MustCompile(`^\d{1,2}$`),
		Label:     regexp.MustCompile(`Power Supply #\d+(?: \([^)]*\))?`),
		Order:     regexp.MustCompile(`#(\d+)`),
	},
}

// DefaultRules returns the whole rule table in priority order. Matching
// with it accepts a target if any vendor's rule accepts it.
func DefaultRules() []Rule {
	rules := make([]Rule, len(ruleTable))
	copy(rules, ruleTable)
	return rules
}

// RulesFor returns the rules of a single vendor, or the whole table when
// the vendor has no rule of its own.
func RulesFor(vendor device.Vendor) []Rule {
	for _, r := range ruleTable {
		if r.Vendor == vendor {
			return []Rule{r}
		}
	}
	return DefaultRules()
}
