// Package device derives reporting tags from a device's display name.
package device

import (
	"regexp"
)

type Vendor string

const (
	Arista   Vendor = "Arista"
	PaloAlto Vendor = "Palo Alto"
	Unknown  Vendor = "Unknown"
)

func (v Vendor) String() string {
	return string(v)
}

// prefixes are tried in order; the capture group is the model.
var prefixes = []struct {
	vendor  Vendor
	pattern *regexp.Regexp
}{
	{Arista, regexp.MustCompile(`^Arista(?:\s+(\S+))?`)},
	{PaloAlto, regexp.MustCompile(`^Palo Alto(?:\s+(\S+))?`)},
}

// Classify returns the vendor and model encoded in a device name such as
// "Arista 7050-48 core01". Either value is Unknown when the name does not
// follow the convention.
func Classify(name string) (Vendor, string) {
	for _, p := range prefixes {
		m := p.pattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		if m[1] == "" {
			return p.vendor, string(Unknown)
		}
		return p.vendor, m[1]
	}
	return Unknown, string(Unknown)
}
