package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/internal/format"
)

// Counters are the running totals shown in the console summary.
type Counters struct {
	Processed      int `json:"processed"`
	Succeeded      int `json:"succeeded"`
	Skipped        int `json:"skipped"`
	NoAction       int `json:"no_action"`
	Failed         int `json:"failed"`
	PsusFound      int `json:"psus_found"`
	SensorsCreated int `json:"sensors_created"`
}

// Reporter accumulates outcomes in arrival order. It is owned by a single
// deployment run and is not safe for concurrent use.
type Reporter struct {
	outcomes []Outcome
	counters Counters
}

func NewReporter() *Reporter {
	return &Reporter{outcomes: []Outcome{}}
}

func (r *Reporter) Add(o Outcome) {
	r.outcomes = append(r.outcomes, o)
	r.counters.Processed++
	r.counters.PsusFound += o.PsusFound
	r.counters.SensorsCreated += o.SensorsCreated
	switch o.Status {
	case StatusSuccess:
		r.counters.Succeeded++
	case StatusSkipped:
		r.counters.Skipped++
	case StatusNoAction:
		r.counters.NoAction++
	case StatusError:
		r.counters.Failed++
	}
}

// Outcomes returns a copy of the recorded outcomes.
func (r *Reporter) Outcomes() []Outcome {
	out := make([]Outcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

func (r *Reporter) Counters() Counters {
	return r.counters
}

// Write serializes the outcomes to path in the format given by its
// extension (CSV unless .json, .yaml or .yml). The report is written to a
// temporary file first so that an interrupted run never leaves a partial
// report behind.
func (r *Reporter) Write(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to make report directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".psu-report-*")
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteOutcomes(tmp, r.outcomes, format.DataFormatFromFileExt(path, format.FORMAT_CSV)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set report permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// WriteOutcomes writes outcomes to w in the given format.
func WriteOutcomes(w io.Writer, outcomes []Outcome, f format.DataFormat) error {
	switch f {
	case format.FORMAT_CSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(Columns); err != nil {
			return fmt.Errorf("failed to write report header: %w", err)
		}
		for _, o := range outcomes {
			if err := cw.Write(o.Row()); err != nil {
				return fmt.Errorf("failed to write report row for device %d: %w", o.DeviceID, err)
			}
		}
		cw.Flush()
		return cw.Error()
	case format.FORMAT_LIST:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIMESTAMP\tID\tDEVICE\tPSUS\tCREATED\tSTATUS\tMESSAGE")
		for _, o := range outcomes {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%s\t%s\n",
				o.Timestamp.Format(TimestampFormat), o.DeviceID, o.DeviceName,
				o.PsusFound, o.SensorsCreated, o.Status, o.Message)
		}
		return tw.Flush()
	default:
		b, err := format.Marshal(outcomes, f)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	}
}
