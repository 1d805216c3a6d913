package secrets

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// MasterKeyEnv names the environment variable holding the hex encoded
// master key of the local store.
const MasterKeyEnv = "MASTER_KEY"

// LocalSecretStore keeps encrypted entries in a JSON file. Each entry is
// encrypted with its own key derived from the master key.
type LocalSecretStore struct {
	mu        sync.RWMutex
	masterKey []byte
	filename  string
	Secrets   map[string]string `json:"secrets"`
}

func NewLocalSecretStore(masterKeyHex, filename string, create bool) (*LocalSecretStore, error) {
	masterKey, err := hex.DecodeString(masterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode master key: %w", err)
	}

	secrets := make(map[string]string)
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		if !create {
			return nil, fmt.Errorf("secrets file %s does not exist", filename)
		}
		if err := SaveSecrets(filename, secrets); err != nil {
			return nil, fmt.Errorf("failed to create secrets file %s: %w", filename, err)
		}
	} else {
		secrets, err = loadSecrets(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to load secrets from file: %w", err)
		}
	}

	return &LocalSecretStore{
		masterKey: masterKey,
		filename:  filename,
		Secrets:   secrets,
	}, nil
}

// GenerateMasterKey creates a random 32-byte key and returns it hex encoded.
func GenerateMasterKey() (string, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}

func (l *LocalSecretStore) GetSecretByID(secretID string) (string, error) {
	l.mu.RLock()
	sealed, exists := l.Secrets[secretID]
	l.mu.RUnlock()
	if !exists {
		return "", fmt.Errorf("no secret found for %s", secretID)
	}

	key, err := deriveKey(l.masterKey, secretID)
	if err != nil {
		return "", err
	}
	return open(key, sealed)
}

// StoreSecretByID encrypts the secret and writes the whole store back to
// its file.
func (l *LocalSecretStore) StoreSecretByID(secretID, secret string) error {
	key, err := deriveKey(l.masterKey, secretID)
	if err != nil {
		return err
	}
	sealed, err := seal(key, []byte(secret))
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.Secrets[secretID] = sealed
	return SaveSecrets(l.filename, l.Secrets)
}

// ListSecrets returns a copy of the stored (still encrypted) entries.
func (l *LocalSecretStore) ListSecrets() (map[string]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	secretsCopy := make(map[string]string, len(l.Secrets))
	for key, value := range l.Secrets {
		secretsCopy[key] = value
	}
	return secretsCopy, nil
}

func (l *LocalSecretStore) RemoveSecretByID(secretID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.Secrets[secretID]; !exists {
		return fmt.Errorf("no secret found for %s", secretID)
	}
	delete(l.Secrets, secretID)
	return SaveSecrets(l.filename, l.Secrets)
}

// OpenStore opens (or creates) the local store at filename using the
// master key from the MASTER_KEY environment variable.
func OpenStore(filename string) (SecretStore, error) {
	if filename == "" {
		return nil, fmt.Errorf("path to secret store required")
	}

	masterKey := os.Getenv(MasterKeyEnv)
	if masterKey == "" {
		return nil, fmt.Errorf("%s environment variable not set", MasterKeyEnv)
	}

	store, err := NewLocalSecretStore(masterKey, filename, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open local secret store: %w", err)
	}
	return store, nil
}

func SaveSecrets(jsonFile string, store map[string]string) error {
	file, err := os.OpenFile(jsonFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(store)
}

func loadSecrets(jsonFile string) (map[string]string, error) {
	b, err := os.ReadFile(jsonFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read secrets file %s: %w", jsonFile, err)
	}
	store := make(map[string]string)
	if len(b) == 0 {
		return store, nil
	}
	if err := json.Unmarshal(b, &store); err != nil {
		return nil, err
	}
	return store, nil
}
