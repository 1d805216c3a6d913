// Package report records the outcome of every device processed during a
// deployment run and writes the run summary.
package report

import (
	"strconv"
	"strings"
	"time"
)

type Status string

const (
	StatusSuccess  Status = "Success"
	StatusSkipped  Status = "Skipped"
	StatusNoAction Status = "NoAction"
	StatusError    Status = "Error"
)

const TimestampFormat = "2006-01-02 15:04:05"

// Columns is the header of the tabular report, one column per Outcome
// field.
var Columns = []string{
	"Timestamp",
	"DeviceId",
	"DeviceName",
	"Vendor",
	"Model",
	"Group",
	"PsusFound",
	"SensorsCreated",
	"SensorIds",
	"Status",
	"Message",
}

// Outcome is the result of processing a single device. Exactly one is
// recorded per device and it is never changed afterwards.
type Outcome struct {
	Timestamp      time.Time `json:"timestamp" yaml:"timestamp"`
	DeviceID       int       `json:"device_id" yaml:"device_id"`
	DeviceName     string    `json:"device_name" yaml:"device_name"`
	Vendor         string    `json:"vendor" yaml:"vendor"`
	Model          string    `json:"model" yaml:"model"`
	Group          string    `json:"group" yaml:"group"`
	PsusFound      int       `json:"psus_found" yaml:"psus_found"`
	SensorsCreated int       `json:"sensors_created" yaml:"sensors_created"`
	SensorIDs      []int     `json:"sensor_ids" yaml:"sensor_ids"`
	Status         Status    `json:"status" yaml:"status"`
	Message        string    `json:"message" yaml:"message"`
}

// Row renders the outcome in the order of Columns.
func (o Outcome) Row() []string {
	return []string{
		o.Timestamp.Format(TimestampFormat),
		strconv.Itoa(o.DeviceID),
		o.DeviceName,
		o.Vendor,
		o.Model,
		o.Group,
		strconv.Itoa(o.PsusFound),
		strconv.Itoa(o.SensorsCreated),
		JoinIDs(o.SensorIDs),
		string(o.Status),
		o.Message,
	}
}

func JoinIDs(ids []int) string {
	s := make([]string, 0, len(ids))
	for _, id := range ids {
		s = append(s, strconv.Itoa(id))
	}
	return strings.Join(s, ",")
}

// ParseIDs is the inverse of JoinIDs. Malformed entries are dropped.
func ParseIDs(s string) []int {
	ids := []int{}
	for _, part := range strings.Split(s, ",") {
		if id, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
