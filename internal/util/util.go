package util

import (
	"os"
	"os/user"
)

// GetCurrentUsername() returns the name of the user running the tool, used
// to build per-user default paths. Falls back to $USER when the user
// database cannot be read.
func GetCurrentUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}
