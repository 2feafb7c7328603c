// Package echo provides an offline agent service that echoes prompts back.
// It implements domain.AgentService without making external API calls,
// providing deterministic responses for development and tests.
package echo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/davidbz/agentrunner/internal/domain"
	"github.com/davidbz/agentrunner/internal/observability"
	"github.com/davidbz/agentrunner/internal/provider/local"
)

const (
	providerName = "echo"
	keyPrefix    = "echo-"
	seedKey      = "echo-seed"
)

// Interface compliance check.
var _ domain.AgentService = (*Provider)(nil)

// Provider implements domain.AgentService in memory.
type Provider struct {
	directory *local.Directory
	now       func() time.Time
}

// NewProvider creates a new echo provider.
// No configuration is required as this provider operates entirely in-memory.
func NewProvider() *Provider {
	return &Provider{
		directory: local.NewDirectory(keyPrefix, seedKey),
		now:       time.Now,
	}
}

// CreateUser provisions an in-memory user.
func (p *Provider) CreateUser(ctx context.Context, username string) (*domain.User, error) {
	user, err := p.directory.CreateUser(username)
	if err != nil {
		return nil, err
	}
	observability.FromContext(ctx).Debug("echo user created", observability.String("user_id", user.UserID))
	return user, nil
}

// CreateAPIKey issues an in-memory key.
func (p *Provider) CreateAPIKey(_ context.Context, userID string) (*domain.APIKey, error) {
	return p.directory.CreateAPIKey(userID)
}

// CreateAgent stores the agent spec.
func (p *Provider) CreateAgent(_ context.Context, spec domain.AgentSpec) (*domain.Agent, error) {
	return p.directory.CreateAgent(spec)
}

// GenerateCompletion echoes the prompt, prefixed with the agent name.
// An empty prompt yields the "None" sentinel.
func (p *Provider) GenerateCompletion(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResult, error) {
	started := p.now()

	spec, err := p.directory.ResolveAgent(req)
	if err != nil {
		return nil, err
	}

	logger := observability.FromContext(ctx)
	logger.Debug("echoing prompt")

	response := domain.NoResponseSentinel
	if strings.TrimSpace(req.Prompt) != "" {
		response = fmt.Sprintf("[%s]: %s", spec.Name, req.Prompt)
	}

	promptTokens := countTokens(req.Prompt)
	completionTokens := countTokens(response)

	return &domain.CompletionResult{
		Response: response,
		Metadata: map[string]interface{}{
			"provider":   providerName,
			"model_name": spec.ModelName,
			"agent_name": spec.Name,
		},
		Timestamp:      started.UTC().Format(time.RFC3339),
		ProcessingTime: p.now().Sub(started).Seconds(),
		TokenUsage: map[string]interface{}{
			"input_tokens":  promptTokens,
			"output_tokens": completionTokens,
			"total_tokens":  promptTokens + completionTokens,
		},
	}, nil
}

// Credentials returns a snapshot of the held credentials.
func (p *Provider) Credentials() domain.Credentials {
	return p.directory.Credentials()
}

// RotateAPIKey switches to a key this provider issued.
func (p *Provider) RotateAPIKey(apiKey string) error {
	return p.directory.RotateAPIKey(apiKey)
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return providerName
}

// countTokens performs simple word-based token counting.
func countTokens(content string) int {
	if content == "" {
		return 0
	}
	return len(strings.Fields(content))
}
