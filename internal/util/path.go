package util

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PathExists() is a wrapper function that simplifies checking
// if a file or directory already exists at the provided path.
//
// Returns the file info and whether the path exists.
func PathExists(path string) (fs.FileInfo, bool) {
	fi, err := os.Stat(path)
	return fi, !os.IsNotExist(err)
}

// SplitPathForViper() is an utility function to split a path into 3 parts:
// - directory
// - filename
// - extension
// The intent was to break a path into a format that's more easily consumable
// by spf13/viper's API. See the "LoadConfig()" function in internal/config.go
// for more details.
func SplitPathForViper(path string) (string, string, string) {
	filename := filepath.Base(path)
	ext := filepath.Ext(filename)
	return filepath.Dir(path), strings.TrimSuffix(filename, ext), strings.TrimPrefix(ext, ".")
}

// DefaultReportPath() derives the report file name of a run from the server
// hostname and the time the run started.
func DefaultReportPath(host string, t time.Time) string {
	return fmt.Sprintf("psu-deployment-%s-%s.csv", host, t.Format("20060102-150405"))
}

// MakeOutputDirectory() creates the parent directory of a file path if it
// does not exist yet.
//
// Returns an error if the path exists but is not a directory.
func MakeOutputDirectory(path string) error {
	dir := filepath.Dir(path)
	fi, exists := PathExists(dir)
	if exists {
		if !fi.IsDir() {
			return fmt.Errorf("found existing path that is not a directory: %v", dir)
		}
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to make directory: %v", err)
	}
	return nil
}
