package observability

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	// RunIDKey holds the unique identifier of a run.
	RunIDKey contextKey = "run_id"

	// OperationKey holds the agent service operation being performed.
	OperationKey contextKey = "operation"

	// ProviderKey holds the agent service backend name.
	ProviderKey contextKey = "provider"

	// UserIDKey holds the provisioned user id.
	UserIDKey contextKey = "user_id"

	// AgentIDKey holds the registered agent id.
	AgentIDKey contextKey = "agent_id"
)

// WithRunID injects run ID into context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// WithOperation injects operation name into context.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, OperationKey, operation)
}

// WithProvider injects provider name into context.
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, ProviderKey, provider)
}

// WithUserID injects user ID into context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithAgentID injects agent ID into context.
func WithAgentID(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, AgentIDKey, agentID)
}

// GetRunID extracts run ID from context.
func GetRunID(ctx context.Context) string {
	return stringValue(ctx, RunIDKey)
}

// GetOperation extracts operation name from context.
func GetOperation(ctx context.Context) string {
	return stringValue(ctx, OperationKey)
}

// GetProvider extracts provider name from context.
func GetProvider(ctx context.Context) string {
	return stringValue(ctx, ProviderKey)
}

// GetUserID extracts user ID from context.
func GetUserID(ctx context.Context) string {
	return stringValue(ctx, UserIDKey)
}

// GetAgentID extracts agent ID from context.
func GetAgentID(ctx context.Context) string {
	return stringValue(ctx, AgentIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// GenerateRunID generates a unique run identifier (UUID).
func GenerateRunID() string {
	return uuid.New().String()
}
