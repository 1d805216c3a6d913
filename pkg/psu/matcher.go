// Package psu turns the raw inventory targets of a device into the list of
// power supplies that should be monitored.
package psu

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/prtg"
	"golang.org/x/exp/slices"
)

const (
	// EntStateOperInfix identifies entStateOper (1.3.6.1.2.1.131.1.1.1.3)
	// in a target OID.
	EntStateOperInfix = "131.1.1.1.3."
	// FallbackLabel is used when no rule finds a unit label.
	FallbackLabel = "PowerSupply"
)

var (
	keywordPattern = regexp.MustCompile(`Power ?Supply`)
	excludedWords  = []string{"Fan", "Speed"}
)

// Candidate is a power supply found on a device.
type Candidate struct {
	Label   string            `json:"label"`
	SortKey int               `json:"sort_key"`
	Target  prtg.SensorTarget `json:"target"`
}

type Matcher struct {
	rules []Rule
}

// NewMatcher creates a matcher for the given rules, or for the whole rule
// table if none are given.
func NewMatcher(rules ...Rule) *Matcher {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Matcher{rules: rules}
}

// Match filters targets down to the primary oper-state entries of power
// supplies and orders them by unit index. Targets with the same index keep
// their discovery order. Duplicate labels are kept.
func (m *Matcher) Match(targets []prtg.SensorTarget) []Candidate {
	candidates := []Candidate{}
	for _, t := range targets {
		if !m.Accepts(t) {
			continue
		}
		label := m.Label(t.Description())
		candidates = append(candidates, Candidate{
			Label:   label,
			SortKey: m.SortKey(label),
			Target:  t,
		})
	}
	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		return a.SortKey - b.SortKey
	})
	return candidates
}

// Accepts reports whether a single target is a power supply's primary
// oper-state entry.
func (m *Matcher) Accepts(t prtg.SensorTarget) bool {
	if !strings.Contains(t.Value, EntStateOperInfix) {
		return false
	}
	desc := t.Description()
	if !keywordPattern.MatchString(desc) {
		return false
	}
	for _, word := range excludedWords {
		if strings.Contains(desc, word) {
			return false
		}
	}
	return m.isMainEntry(t.Value)
}

// Label returns the first unit label any rule finds in desc.
func (m *Matcher) Label(desc string) string {
	for _, r := range m.rules {
		if label := r.Label.FindString(desc); label != "" {
			return label
		}
	}
	return FallbackLabel
}

// SortKey returns the unit index encoded in a label, or 0.
func (m *Matcher) SortKey(label string) int {
	for _, r := range m.rules {
		match := r.Order.FindStringSubmatch(label)
		if match == nil {
			continue
		}
		if n, err := strconv.Atoi(match[1]); err == nil {
			return n
		}
	}
	return 0
}

func (m *Matcher) isMainEntry(oid string) bool {
	segment := oid[strings.LastIndex(oid, ".")+1:]
	for _, r := range m.rules {
		if r.MainEntry.MatchString(segment) {
			return true
		}
	}
	return false
}
