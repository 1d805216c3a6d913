package cmd

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/prtg"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCredentials(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(`{"username":"prtgadmin","password":"secret"}`))
	tests := []struct {
		name     string
		value    string
		format   string
		expected prtg.Credentials
		wantErr  bool
	}{
		{name: "basic", value: "prtgadmin:se:cret", format: "basic", expected: prtg.Credentials{Username: "prtgadmin", Password: "se:cret"}},
		{name: "basic without password", value: "prtgadmin", format: "basic", wantErr: true},
		{name: "token", value: "TOKEN", format: "token", expected: prtg.Credentials{APIToken: "TOKEN"}},
		{name: "json", value: `{"apitoken":"TOKEN"}`, format: "json", expected: prtg.Credentials{APIToken: "TOKEN"}},
		{name: "json incomplete", value: `{"username":"prtgadmin"}`, format: "json", wantErr: true},
		{name: "json invalid", value: `{username`, format: "json", wantErr: true},
		{name: "base64", value: encoded, format: "base64", expected: prtg.Credentials{Username: "prtgadmin", Password: "secret"}},
		{name: "unknown format", value: "x", format: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, err := parseCredentials(tt.value, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, creds)
		})
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, report.Counters{Processed: 5, Succeeded: 2, Skipped: 1, NoAction: 1, Failed: 1, PsusFound: 6, SensorsCreated: 3}, true)
	out := buf.String()
	assert.Contains(t, out, "dry run")
	assert.Contains(t, out, "Sensors created:")
	assert.Contains(t, out, "3")
}

func TestPrintOutcome(t *testing.T) {
	var buf bytes.Buffer
	printOutcome(&buf, report.Outcome{DeviceID: 2001, DeviceName: "Arista 7050-48 core01", Status: report.StatusSuccess, Message: "Created 2 of 2 sensor(s)", SensorIDs: []int{4001, 4002}})
	assert.Contains(t, buf.String(), "Arista 7050-48 core01 (2001)")
	assert.Contains(t, buf.String(), "4001,4002")
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"deploy", "device", "probe", "history", "secrets", "version"} {
		c, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, c.Name())
	}
}
