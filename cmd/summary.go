package cmd

import (
	"fmt"
	"io"

	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/report"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	skippedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	noActionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	labelStyle    = lipgloss.NewStyle().Width(18)
)

func statusStyle(status report.Status) lipgloss.Style {
	switch status {
	case report.StatusSuccess:
		return successStyle
	case report.StatusSkipped:
		return skippedStyle
	case report.StatusNoAction:
		return noActionStyle
	default:
		return errorStyle
	}
}

// printSummary writes the run totals. Dry runs are labelled so they are not
// mistaken for a real deployment.
func printSummary(w io.Writer, c report.Counters, dryRun bool) {
	title := "Deployment summary"
	if dryRun {
		title += " (dry run)"
	}
	fmt.Fprintln(w, titleStyle.Render(title))
	rows := []struct {
		label string
		value int
		style lipgloss.Style
	}{
		{"Devices processed", c.Processed, lipgloss.NewStyle()},
		{"Succeeded", c.Succeeded, successStyle},
		{"Skipped", c.Skipped, skippedStyle},
		{"No action", c.NoAction, noActionStyle},
		{"Failed", c.Failed, errorStyle},
		{"PSUs found", c.PsusFound, lipgloss.NewStyle()},
		{"Sensors created", c.SensorsCreated, lipgloss.NewStyle()},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(r.label+":"), r.style.Render(fmt.Sprint(r.value)))
	}
}

func printOutcome(w io.Writer, o report.Outcome) {
	fmt.Fprintf(w, "%s (%d): %s %s\n", o.DeviceName, o.DeviceID,
		statusStyle(o.Status).Render(string(o.Status)), o.Message)
	if len(o.SensorIDs) > 0 {
		fmt.Fprintf(w, "  sensor ids: %s\n", report.JoinIDs(o.SensorIDs))
	}
}
