package main

import (
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/cmd"
)

var (
	version string
	commit  string
	date    string
)

func main() {
	cmd.SetVersionInfo(version, commit, date)
	cmd.Execute()
}
