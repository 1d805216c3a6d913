package secrets

import (
	"encoding/json"
	"fmt"
)

// StaticStore serves a single set of credentials for every server. It is
// used when the credentials are passed explicitly with flags or the
// environment.
type StaticStore struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	APIToken string `json:"apitoken,omitempty"`
}

func NewStaticStore(username, password string) *StaticStore {
	return &StaticStore{
		Username: username,
		Password: password,
	}
}

func NewStaticTokenStore(token string) *StaticStore {
	return &StaticStore{APIToken: token}
}

func (s *StaticStore) GetSecretByID(secretID string) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal static credentials: %w", err)
	}
	return string(b), nil
}

func (s *StaticStore) StoreSecretByID(secretID, secret string) error {
	return fmt.Errorf("static store is read-only")
}

func (s *StaticStore) ListSecrets() (map[string]string, error) {
	secret, err := s.GetSecretByID(DefaultKey)
	if err != nil {
		return nil, err
	}
	return map[string]string{"static_creds": secret}, nil
}

func (s *StaticStore) RemoveSecretByID(secretID string) error {
	return fmt.Errorf("static store is read-only")
}
