package prtg

import "strings"

// Device is a device object registered in PRTG. It is only ever read by
// the deployer.
type Device struct {
	ID    int    `json:"objid"`
	Name  string `json:"device"`
	Group string `json:"group"`
	Host  string `json:"host"`
}

// Sensor is the subset of a PRTG sensor needed to check what a device is
// already monitoring.
type Sensor struct {
	ID   int    `json:"objid"`
	Name string `json:"name"`
}

// SensorTarget is one row returned by probing a device against an SNMP
// library file. Value is the OID of the data point and Properties holds
// every pipe-delimited field of the row in the order PRTG returned them
// (the OID included).
type SensorTarget struct {
	Value      string   `json:"value"`
	Properties []string `json:"properties"`
}

// Description joins the target's properties into a single searchable
// string.
func (t SensorTarget) Description() string {
	return strings.Join(t.Properties, " ")
}

// Parameter returns the string PRTG expects when the target is passed
// back to addsensor5. The creation form wants every property of the row,
// not only the OID.
func (t SensorTarget) Parameter() string {
	return strings.Join(t.Properties, "|")
}

// ParseSensorTarget builds a target from a raw pipe-delimited checkbox
// value as found in the addsensor4 form.
func ParseSensorTarget(raw string) SensorTarget {
	props := strings.Split(raw, "|")
	return SensorTarget{
		Value:      props[0],
		Properties: props,
	}
}

// SensorSpec holds the parameters of an SNMP library sensor to create.
type SensorSpec struct {
	Name            string
	Library         string
	InterfaceNumber int
	Target          SensorTarget
	Tags            []string
	Priority        int
}

const (
	SensorTypeSNMPLibrary = "snmplibrary"
	DefaultPriority       = 3
)

// DefaultTags are attached to every PSU sensor created by the deployer.
var DefaultTags = []string{"psu", "powersupply", "snmplibrary"}

type tableResponse struct {
	Version  string   `json:"prtg-version"`
	TreeSize int      `json:"treesize"`
	Devices  []Device `json:"devices,omitempty"`
	Sensors  []Sensor `json:"sensors,omitempty"`
}

type progressResponse struct {
	Progress  any    `json:"progress"`
	TargetURL string `json:"targeturl"`
}
