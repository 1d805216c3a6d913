package prtg

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/secrets"
	"github.com/rs/zerolog/log"
)

var ErrMissingCredentials = errors.New("missing or incomplete PRTG credentials")

// Credentials authenticate API calls against a PRTG server. Either an API
// token or a username and password (or passhash) pair is required.
type Credentials struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	APIToken string `json:"apitoken,omitempty"`
}

// Complete reports whether the credentials are usable as-is.
func (c Credentials) Complete() bool {
	if c.APIToken != "" {
		return true
	}
	return c.Username != "" && c.Password != ""
}

// GetCredentials looks up the credentials stored for a server (usually
// keyed by its hostname) and falls back to the store's default entry.
func GetCredentials(store secrets.SecretStore, id string) (Credentials, error) {
	var creds Credentials
	if store == nil {
		return creds, fmt.Errorf("no secret store provided")
	}

	secret, err := store.GetSecretByID(id)
	if err != nil {
		log.Debug().Str("id", id).Msg("specific credentials not found, falling back to default")
		secret, err = store.GetSecretByID(secrets.DefaultKey)
		if err != nil {
			return creds, fmt.Errorf("no credentials stored for '%s' or default: %w", id, err)
		}
	}
	if err := json.Unmarshal([]byte(secret), &creds); err != nil {
		return creds, fmt.Errorf("failed to unmarshal credentials for '%s': %w", id, err)
	}
	return creds, nil
}
