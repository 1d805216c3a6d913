package url

import (
	"fmt"
	"net/url"
	"strings"
)

// Sanitize() makes sure a server address has a scheme and no trailing
// slashes. Addresses given as bare hostnames default to https.
func Sanitize(uri string) (string, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return "", fmt.Errorf("no URI provided")
	}
	if !strings.Contains(uri, "://") {
		uri = "https://" + uri
	}
	parsedURI, err := url.ParseRequestURI(uri)
	if err != nil {
		return "", fmt.Errorf("failed to parse URI: %w", err)
	}
	if parsedURI.Host == "" {
		return "", fmt.Errorf("no host in URI '%s'", uri)
	}
	// Remove any trailing slashes
	parsedURI.Path = strings.TrimRight(parsedURI.Path, "/")
	// Collapse any doubled slashes
	parsedURI.Path = strings.ReplaceAll(parsedURI.Path, "//", "/")
	return parsedURI.String(), nil
}

// Hostname() returns the host of a server address without its port. It is
// used to key credentials and to name report files.
func Hostname(uri string) string {
	sanitized, err := Sanitize(uri)
	if err != nil {
		return uri
	}
	parsedURI, err := url.Parse(sanitized)
	if err != nil {
		return uri
	}
	return parsedURI.Hostname()
}
