package domain

import (
	"errors"
	"strings"
)

// Credentials is the session state a client holds against a service.
type Credentials struct {
	UserID string `json:"user_id"`
	APIKey string `json:"api_key"`
}

// HasAPIKey reports whether a non-blank API key is present.
func (c Credentials) HasAPIKey() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// CredentialStore owns the mutable credentials of a single client.
// Only Install and Rotate write to it. It is not safe for concurrent use.
type CredentialStore struct {
	current Credentials
}

// NewCredentialStore creates a store seeded with an initial API key.
func NewCredentialStore(apiKey string) *CredentialStore {
	return &CredentialStore{
		current: Credentials{APIKey: apiKey},
	}
}

// Install replaces both fields with the values issued at user creation.
func (s *CredentialStore) Install(apiKey, userID string) {
	s.current = Credentials{
		UserID: userID,
		APIKey: apiKey,
	}
}

// Rotate replaces the API key, keeping the user id.
func (s *CredentialStore) Rotate(apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return errors.New("api key cannot be empty")
	}
	s.current.APIKey = apiKey
	return nil
}

// Snapshot returns a copy of the current credentials.
func (s *CredentialStore) Snapshot() Credentials {
	return s.current
}

// APIKey returns the trimmed API key, or ErrNoCredential when none is held.
func (s *CredentialStore) APIKey() (string, error) {
	if !s.current.HasAPIKey() {
		return "", ErrNoCredential
	}
	return strings.TrimSpace(s.current.APIKey), nil
}
