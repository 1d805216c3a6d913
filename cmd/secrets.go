package cmd

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/prtg"
	"github.com/CC-Digital-Innovation/prtg-psu-sensor-deployer/pkg/secrets"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	secretsStoreFormat    string
	secretsStoreInputFile string
)

var secretsCmd = &cobra.Command{
	Use: "secrets",
	Example: `  // generate new key and set environment variable
  export MASTER_KEY=$(prtg-psu secrets generatekey)

  // store credentials for a PRTG server, keyed by its hostname
  prtg-psu secrets store prtg.example.com prtgadmin:secret

  // store an API token as the default for every server
  prtg-psu secrets store default MYTOKEN --format token

  // retrieve credentials from a specific secrets file
  prtg-psu secrets retrieve prtg.example.com --secrets-file prtg.json

  // list stored credentials
  prtg-psu secrets list`,
	Short: "Manage credentials for PRTG servers",
	Long:  "Manage credentials for PRTG servers. This requires generating a key and setting the 'MASTER_KEY' environment variable for the secrets store.",
}

var secretsGenerateKeyCmd = &cobra.Command{
	Use:   "generatekey",
	Args:  cobra.NoArgs,
	Short: "Generates a new 32-byte master key (in hex).",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := secrets.GenerateMasterKey()
		if err != nil {
			return fmt.Errorf("failed to generate master key: %w", err)
		}
		fmt.Printf("%s\n", key)
		return nil
	},
}

var secretsStoreCmd = &cobra.Command{
	Use:   "store secretID <basic(default)|token|json|base64>",
	Args:  cobra.RangeArgs(1, 2),
	Short: "Stores the given credentials under secretID.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			secretID    = args[0]
			secretValue string
		)

		// require either the args or input file
		if len(args) > 1 {
			if secretsStoreInputFile != "" {
				return fmt.Errorf("cannot use -i/--input-file with positional argument")
			}
			// use args[1] here because args[0] is the secretID
			secretValue = args[1]
		} else if secretsStoreInputFile != "" {
			b, err := os.ReadFile(secretsStoreInputFile)
			if err != nil {
				return fmt.Errorf("failed to read input file: %w", err)
			}
			secretValue = strings.TrimSpace(string(b))
		} else {
			return fmt.Errorf("no input data or file")
		}

		creds, err := parseCredentials(secretValue, secretsStoreFormat)
		if err != nil {
			return err
		}
		b, err := json.Marshal(creds)
		if err != nil {
			return fmt.Errorf("failed to marshal credentials: %w", err)
		}

		store, err := secrets.OpenStore(viper.GetString("secrets.file"))
		if err != nil {
			return fmt.Errorf("failed to open secrets store: %w", err)
		}
		if err := store.StoreSecretByID(secretID, string(b)); err != nil {
			return fmt.Errorf("failed to store secret by ID: %w", err)
		}
		log.Info().Str("id", secretID).Msg("stored credentials")
		return nil
	},
}

// parseCredentials reads credentials given in one of the store formats and
// makes sure they can authenticate on their own.
func parseCredentials(value string, format string) (prtg.Credentials, error) {
	var creds prtg.Credentials
	switch format {
	case "basic": // format: $username:$password
		username, password, ok := strings.Cut(value, ":")
		if !ok {
			return creds, fmt.Errorf("expected credentials in [username:password] format")
		}
		creds = prtg.Credentials{Username: username, Password: password}
	case "token":
		creds = prtg.Credentials{APIToken: value}
	case "base64": // format: ($encoded_base64_string)
		decoded, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return creds, fmt.Errorf("failed to decode base64 data: %w", err)
		}
		return parseCredentials(string(decoded), "json")
	case "json": // format: {"username": $username, "password": $password} or {"apitoken": $token}
		if err := json.Unmarshal([]byte(value), &creds); err != nil {
			return creds, fmt.Errorf("value is not valid JSON: %w", err)
		}
	default:
		return creds, fmt.Errorf("unknown input format '%s'", format)
	}
	if !creds.Complete() {
		return creds, prtg.ErrMissingCredentials
	}
	return creds, nil
}

var secretsRetrieveCmd = &cobra.Command{
	Use:   "retrieve secretID",
	Args:  cobra.ExactArgs(1),
	Short: "Prints the credentials stored under secretID.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := secrets.OpenStore(viper.GetString("secrets.file"))
		if err != nil {
			return err
		}
		secretValue, err := store.GetSecretByID(args[0])
		if err != nil {
			return fmt.Errorf("failed to retrieve secret: %w", err)
		}
		fmt.Printf("Secret for %s: %s\n", args[0], secretValue)
		return nil
	},
}

var secretsListCmd = &cobra.Command{
	Use:   "list",
	Args:  cobra.NoArgs,
	Short: "Lists all the secret IDs and their values.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := secrets.OpenStore(viper.GetString("secrets.file"))
		if err != nil {
			return err
		}
		stored, err := store.ListSecrets()
		if err != nil {
			return fmt.Errorf("failed to list secrets: %w", err)
		}
		for key, value := range stored {
			fmt.Printf("%s: %s\n", key, value)
		}
		return nil
	},
}

var secretsRemoveCmd = &cobra.Command{
	Use:   "remove secretIDs...",
	Args:  cobra.MinimumNArgs(1),
	Short: "Remove secrets by IDs from secret store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := secrets.OpenStore(viper.GetString("secrets.file"))
		if err != nil {
			return err
		}
		for _, secretID := range args {
			if err := store.RemoveSecretByID(secretID); err != nil {
				return fmt.Errorf("failed to remove secret '%s': %w", secretID, err)
			}
		}
		return nil
	},
}

func init() {
	secretsStoreCmd.Flags().StringVarP(&secretsStoreFormat, "format", "F", "basic", "Set the input format for the credentials (basic|token|json|base64).")
	secretsStoreCmd.Flags().StringVarP(&secretsStoreInputFile, "input-file", "i", "", "Set the file to read as input.")

	secretsCmd.AddCommand(secretsGenerateKeyCmd)
	secretsCmd.AddCommand(secretsStoreCmd)
	secretsCmd.AddCommand(secretsRetrieveCmd)
	secretsCmd.AddCommand(secretsListCmd)
	secretsCmd.AddCommand(secretsRemoveCmd)

	rootCmd.AddCommand(secretsCmd)
}
