package domain

import "context"

// AgentService represents any backend able to provision users and run agents.
type AgentService interface {
	// CreateUser provisions a user account and installs its credential.
	CreateUser(ctx context.Context, username string) (*User, error)

	// CreateAPIKey mints an additional API key for the given user.
	CreateAPIKey(ctx context.Context, userID string) (*APIKey, error)

	// CreateAgent registers an agent and returns its descriptor.
	CreateAgent(ctx context.Context, spec AgentSpec) (*Agent, error)

	// GenerateCompletion asks an agent to answer a prompt.
	GenerateCompletion(ctx context.Context, req *CompletionRequest) (*CompletionResult, error)

	// Credentials returns a snapshot of the credentials currently held.
	Credentials() Credentials

	// RotateAPIKey replaces the held API key with an externally issued one.
	RotateAPIKey(apiKey string) error

	// Name returns the backend identifier.
	Name() string
}

// ServiceRegistry manages available agent service backends.
type ServiceRegistry interface {
	// Register adds a backend to the registry.
	Register(ctx context.Context, service AgentService) error

	// Get retrieves a backend by name.
	Get(ctx context.Context, name string) (AgentService, error)

	// List returns all available backends.
	List(ctx context.Context) ([]string, error)
}

// ResultSink persists a finished run record.
type ResultSink interface {
	// Save stores the record.
	Save(ctx context.Context, record *RunRecord) error

	// Name returns the sink identifier.
	Name() string
}

// EventPublisher publishes events for observability.
type EventPublisher interface {
	// Publish publishes an event with the given type and data.
	Publish(ctx context.Context, eventType string, data map[string]interface{})
}
