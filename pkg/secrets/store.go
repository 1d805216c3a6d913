// Package secrets stores PRTG credentials, one entry per server, in an
// encrypted local file. Entries are JSON documents holding a username and
// password or an API token.
package secrets

// DefaultKey is the entry used when no credentials are stored for a
// specific server.
const DefaultKey = "default"

type SecretStore interface {
	GetSecretByID(secretID string) (string, error)
	StoreSecretByID(secretID, secret string) error
	ListSecrets() (map[string]string, error)
	RemoveSecretByID(secretID string) error
}
