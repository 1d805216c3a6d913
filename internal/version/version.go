// Package version holds build metadata injected with -ldflags, e.g.
//
//	-X github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/internal/version.Version=v1.0.0
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release number or semantic version of the binary.
	Version = "dev"
	// GitCommit stores the latest Git commit hash.
	GitCommit string
	// GitBranch holds the name of the Git branch the build was created from.
	GitBranch string
	// GitState is "clean" or "dirty".
	GitState string
	// BuildTime stores the build timestamp in UTC.
	BuildTime string
	// BuildHost stores the hostname of the machine where the binary was built.
	BuildHost string
	// BuildUser is the user or system that initiated the build.
	BuildUser string
	// GoVersion defaults to the version of the running toolchain.
	GoVersion = runtime.Version()
)

// PrintVersionInfo outputs all versioning information for troubleshooting or version checks.
func PrintVersionInfo() {
	fmt.Printf("Version: %s\n", Version)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Printf("Git Branch: %s\n", GitBranch)
	fmt.Printf("Git State: %s\n", GitState)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Build Host: %s\n", BuildHost)
	fmt.Printf("Build User: %s\n", BuildUser)
	fmt.Printf("Go Version: %s\n", GoVersion)
}

func VersionInfo() string {
	return fmt.Sprintf("Version: %s, Git Commit: %s, Git Branch: %s, Git State: %s, Build Time: %s, Build Host: %s, Build User: %s, Go Version: %s",
		Version, GitCommit, GitBranch, GitState, BuildTime, BuildHost, BuildUser, GoVersion)
}
