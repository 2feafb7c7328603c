// Package local keeps users, keys and agents in memory for backends that run
// agents in-process instead of on a hosted service.
package local

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/davidbz/agentrunner/internal/domain"
)

// Directory is an in-memory account and agent store with the same credential
// rules as the hosted service. It is not safe for concurrent use.
type Directory struct {
	keyPrefix string
	creds     *domain.CredentialStore
	keys      map[string]string // api key -> user id
	users     map[string]string // user id -> username
	agents    map[string]domain.AgentSpec
}

// NewDirectory creates a directory whose issued keys start with keyPrefix.
// seedKey is accepted as a credential until the first user is created.
func NewDirectory(keyPrefix, seedKey string) *Directory {
	d := &Directory{
		keyPrefix: keyPrefix,
		creds:     domain.NewCredentialStore(seedKey),
		keys:      make(map[string]string),
		users:     make(map[string]string),
		agents:    make(map[string]domain.AgentSpec),
	}
	if seedKey != "" {
		d.keys[seedKey] = ""
	}
	return d
}

// CreateUser registers username and installs its first key.
func (d *Directory) CreateUser(username string) (*domain.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, fmt.Errorf("%w: username cannot be empty", domain.ErrUserCreation)
	}

	userID := uuid.New().String()
	key := d.issueKey(userID)
	d.users[userID] = username
	d.creds.Install(key, userID)

	return &domain.User{
		Username: username,
		UserID:   userID,
		APIKey:   key,
	}, nil
}

// CreateAPIKey issues another key for an existing user.
func (d *Directory) CreateAPIKey(userID string) (*domain.APIKey, error) {
	if err := d.authorize(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAPIKeyCreation, err)
	}

	if _, exists := d.users[userID]; !exists {
		return nil, fmt.Errorf("%w: user %q not found", domain.ErrAPIKeyCreation, userID)
	}

	return &domain.APIKey{
		Key:  d.issueKey(userID),
		Name: "new_api_key",
	}, nil
}

// CreateAgent stores spec under a fresh id.
func (d *Directory) CreateAgent(spec domain.AgentSpec) (*domain.Agent, error) {
	if err := d.authorize(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAgentCreation, err)
	}

	if spec.Name == "" {
		return nil, fmt.Errorf("%w: agent name cannot be empty", domain.ErrAgentCreation)
	}

	agentID := uuid.New().String()
	d.agents[agentID] = spec

	return &domain.Agent{
		ID:   agentID,
		Name: spec.Name,
	}, nil
}

// ResolveAgent checks both credentials of a completion request and returns the agent.
func (d *Directory) ResolveAgent(req *domain.CompletionRequest) (domain.AgentSpec, error) {
	if req == nil {
		return domain.AgentSpec{}, fmt.Errorf("%w: request cannot be nil", domain.ErrCompletion)
	}

	if err := d.authorize(); err != nil {
		return domain.AgentSpec{}, fmt.Errorf("%w: %w", domain.ErrCompletion, err)
	}

	if _, known := d.keys[strings.TrimSpace(req.APIKey)]; !known {
		return domain.AgentSpec{}, fmt.Errorf("%w: %w", domain.ErrCompletion, domain.ErrUnauthorized)
	}

	spec, exists := d.agents[req.AgentID]
	if !exists {
		return domain.AgentSpec{}, fmt.Errorf("%w: %w: agent %s", domain.ErrCompletion, domain.ErrAgentNotFound, req.AgentID)
	}

	return spec, nil
}

// Credentials returns a snapshot of the held credentials.
func (d *Directory) Credentials() domain.Credentials {
	return d.creds.Snapshot()
}

// RotateAPIKey switches to a key this directory issued.
func (d *Directory) RotateAPIKey(apiKey string) error {
	if _, known := d.keys[apiKey]; !known {
		return domain.ErrUnauthorized
	}
	return d.creds.Rotate(apiKey)
}

func (d *Directory) authorize() error {
	key, err := d.creds.APIKey()
	if err != nil {
		return err
	}
	if _, known := d.keys[key]; !known {
		return domain.ErrUnauthorized
	}
	return nil
}

func (d *Directory) issueKey(userID string) string {
	key := d.keyPrefix + strings.ReplaceAll(uuid.New().String(), "-", "")
	d.keys[key] = userID
	return key
}
