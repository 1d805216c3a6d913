package prtg

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ParseSensorTargets extracts the sensor targets from the addsensor4 form
// PRTG renders once discovery has finished. Every target is a checkbox
// whose value carries the pipe-delimited row.
func ParseSensorTargets(r io.Reader) ([]SensorTarget, error) {
	var (
		targets []SensorTarget
		z       = html.NewTokenizer(r)
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return targets, nil
			}
			return targets, fmt.Errorf("failed to parse sensor targets: %w", z.Err())
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "input" {
				continue
			}
			if target, ok := targetFromInput(tok); ok {
				targets = append(targets, target)
			}
		}
	}
}

func targetFromInput(tok html.Token) (SensorTarget, bool) {
	var kind, name, value string
	for _, attr := range tok.Attr {
		switch attr.Key {
		case "type":
			kind = attr.Val
		case "name":
			name = attr.Val
		case "value":
			value = attr.Val
		}
	}
	if kind != "checkbox" || !strings.HasSuffix(name, "__check") || value == "" {
		return SensorTarget{}, false
	}
	return ParseSensorTarget(value), true
}
