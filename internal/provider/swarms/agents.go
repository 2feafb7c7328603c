package swarms

import (
	"context"
	"errors"
	"fmt"

	"github.com/davidbz/agentrunner/internal/domain"
	"github.com/davidbz/agentrunner/internal/observability"
)

const (
	opCreateAgent = "agent creation"

	defaultSystemPrompt = "You are a helpful AI assistant."
	defaultModelName    = "gpt-4"
)

// agentPayload is the agent configuration. Everything but the first five fields is fixed.
type agentPayload struct {
	AgentName                 string   `json:"agent_name"`
	ModelName                 string   `json:"model_name"`
	Description               string   `json:"description"`
	SystemPrompt              string   `json:"system_prompt"`
	Temperature               float64  `json:"temperature"`
	MaxLoops                  int      `json:"max_loops"`
	Autosave                  bool     `json:"autosave"`
	Dashboard                 bool     `json:"dashboard"`
	Verbose                   bool     `json:"verbose"`
	DynamicTemperatureEnabled bool     `json:"dynamic_temperature_enabled"`
	UserName                  string   `json:"user_name"`
	RetryAttempts             int      `json:"retry_attempts"`
	ContextLength             int      `json:"context_length"`
	OutputType                string   `json:"output_type"`
	StreamingOn               bool     `json:"streaming_on"`
	Tags                      []string `json:"tags"`
}

func newAgentPayload(spec domain.AgentSpec) agentPayload {
	systemPrompt := spec.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	modelName := spec.ModelName
	if modelName == "" {
		modelName = defaultModelName
	}

	return agentPayload{
		AgentName:                 spec.Name,
		ModelName:                 modelName,
		Description:               "API-created agent",
		SystemPrompt:              systemPrompt,
		Temperature:               spec.Temperature,
		MaxLoops:                  1,
		Autosave:                  true,
		Dashboard:                 false,
		Verbose:                   true,
		DynamicTemperatureEnabled: true,
		UserName:                  "default_user",
		RetryAttempts:             1,
		ContextLength:             200000,
		OutputType:                "string",
		StreamingOn:               false,
		Tags:                      []string{"api_created"},
	}
}

// CreateAgent registers an agent. A rejected key is treated as expired: a new
// user is provisioned and the request retried, within agentMaxAttempts total
// attempts. Transport failures are retried within the same budget; a success
// response without agent_id is fatal.
func (c *Client) CreateAgent(ctx context.Context, spec domain.AgentSpec) (*domain.Agent, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("%w: agent name cannot be empty", domain.ErrAgentCreation)
	}

	ctx = observability.WithOperation(ctx, "create_agent")
	logger := observability.FromContext(ctx)
	payload := newAgentPayload(spec)

	var lastErr error
	for attempt := 1; attempt <= c.agentMaxAttempts; attempt++ {
		apiKey, err := c.creds.APIKey()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrAgentCreation, err)
		}

		final := attempt == c.agentMaxAttempts
		agent, err := c.tryCreateAgent(ctx, apiKey, payload)

		switch {
		case err == nil:
			logger.Info("agent created",
				observability.String("agent_id", agent.ID),
				observability.Int("attempt", attempt))
			return agent, nil

		case domain.IsUnauthorized(err):
			if final {
				return nil, fmt.Errorf("%w: %w (%d attempts)",
					domain.ErrAgentCreation, domain.ErrCredentialExhausted, attempt)
			}

			username := c.newUsername()
			logger.Warn("api key is invalid or expired, provisioning a new user",
				observability.Int("attempt", attempt),
				observability.String("username", username))

			if _, userErr := c.CreateUser(ctx, username); userErr != nil {
				logger.Warn("re-provisioning failed", observability.Error(userErr))
				lastErr = userErr
			}

		case errors.Is(err, domain.ErrMalformedResponse):
			return nil, fmt.Errorf("%w: %w", domain.ErrAgentCreation, err)

		default:
			// Transport errors, unreadable bodies and non-2xx statuses other than 401.
			logger.Warn("agent creation attempt failed",
				observability.Int("attempt", attempt),
				observability.Error(err))
			if final {
				return nil, fmt.Errorf("%w: %w", domain.ErrAgentCreation, err)
			}
			lastErr = err
		}
	}

	return nil, fmt.Errorf("%w: %w", domain.ErrAgentCreation, lastErr)
}

// tryCreateAgent performs one attempt and classifies its outcome.
func (c *Client) tryCreateAgent(ctx context.Context, apiKey string, payload agentPayload) (*domain.Agent, error) {
	resp, err := c.post(ctx, opCreateAgent, "/agent", map[string]string{apiKeyHeader: apiKey}, payload)
	if err != nil {
		return nil, err
	}

	// A 401 surfaces as a StatusError matching domain.ErrUnauthorized.
	if statusErr := resp.statusError(opCreateAgent); statusErr != nil {
		return nil, statusErr
	}

	body, err := resp.decode(opCreateAgent)
	if err != nil {
		return nil, err
	}

	agentID := stringField(body, "agent_id")
	if agentID == "" {
		return nil, fmt.Errorf("%w: no agent_id in response", domain.ErrMalformedResponse)
	}

	name := stringField(body, "agent_name")
	if name == "" {
		name = payload.AgentName
	}

	return &domain.Agent{
		ID:     agentID,
		Name:   name,
		Fields: body,
	}, nil
}
