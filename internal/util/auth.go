package util

import (
	"fmt"

	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/internal/url"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/prtg"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/secrets"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// BuildSecretStore() creates a secret store from credentials explicitly
// provided via Viper, or loads the secrets file when they are not.
func BuildSecretStore() (secrets.SecretStore, error) {
	if viper.GetString("api-token") != "" {
		log.Debug().Msg("--api-token specified, using it for PRTG credentials")
		return secrets.NewStaticTokenStore(viper.GetString("api-token")), nil
	}
	if viper.GetString("username") != "" && viper.GetString("password") != "" {
		log.Debug().Msg("--username and --password specified, using them for PRTG credentials")
		return secrets.NewStaticStore(viper.GetString("username"), viper.GetString("password")), nil
	}

	secretsFile := viper.GetString("secrets.file")
	if secretsFile == "" {
		return nil, fmt.Errorf("no credentials passed and no secrets file set")
	}
	log.Debug().Msgf("credentials not passed, attempting to obtain them from secret store at %s", secretsFile)
	store, err := secrets.OpenStore(secretsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open local secrets store: %w", err)
	}
	return store, nil
}

// LoadCredentials() resolves the PRTG credentials for a server. Values
// passed with --username or --password override the ones found in the
// secret store. An incomplete result returns prtg.ErrMissingCredentials
// so that the caller can stop before contacting the server.
func LoadCredentials(server string) (prtg.Credentials, error) {
	store, err := BuildSecretStore()
	if err != nil {
		return prtg.Credentials{}, fmt.Errorf("%w: %v", prtg.ErrMissingCredentials, err)
	}

	creds, err := prtg.GetCredentials(store, url.Hostname(server))
	if err != nil {
		log.Warn().Err(err).Msg("no stored credentials found")
	}
	if viper.GetString("username") != "" {
		creds.Username = viper.GetString("username")
	}
	if viper.GetString("password") != "" {
		creds.Password = viper.GetString("password")
	}
	if !creds.Complete() {
		return creds, prtg.ErrMissingCredentials
	}
	return creds, nil
}
