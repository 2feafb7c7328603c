// Package openai provides a direct agent backend on the official OpenAI SDK.
// Users, keys and agents live in memory; a completion runs the agent's system
// prompt, model and temperature as a single Chat Completions call.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/davidbz/agentrunner/internal/domain"
	"github.com/davidbz/agentrunner/internal/observability"
	"github.com/davidbz/agentrunner/internal/provider/local"
)

const (
	providerName     = "openai"
	keyPrefix        = "local-"
	defaultModelName = "gpt-4"
)

// Interface compliance check.
var _ domain.AgentService = (*Provider)(nil)

// Provider implements domain.AgentService for OpenAI.
type Provider struct {
	client    openai.Client
	directory *local.Directory
	name      string
}

// NewProvider creates a new OpenAI provider.
func NewProvider(config Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", domain.ErrConfiguration)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
	}

	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(config.Timeout)*time.Second))
	}

	if config.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(config.MaxRetries))
	}

	return &Provider{
		client:    openai.NewClient(opts...),
		directory: local.NewDirectory(keyPrefix, config.APIKey),
		name:      providerName,
	}, nil
}

// CreateUser provisions an in-memory user.
func (p *Provider) CreateUser(_ context.Context, username string) (*domain.User, error) {
	return p.directory.CreateUser(username)
}

// CreateAPIKey issues an in-memory key.
func (p *Provider) CreateAPIKey(_ context.Context, userID string) (*domain.APIKey, error) {
	return p.directory.CreateAPIKey(userID)
}

// CreateAgent stores the agent spec.
func (p *Provider) CreateAgent(_ context.Context, spec domain.AgentSpec) (*domain.Agent, error) {
	return p.directory.CreateAgent(spec)
}

// GenerateCompletion runs the agent against the Chat Completions API.
func (p *Provider) GenerateCompletion(
	ctx context.Context,
	req *domain.CompletionRequest,
) (*domain.CompletionResult, error) {
	spec, err := p.directory.ResolveAgent(req)
	if err != nil {
		return nil, err
	}

	logger := observability.FromContext(ctx)
	logger.Debug("calling OpenAI API")

	started := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, toSDKParams(spec, req.Prompt))
	if err != nil {
		logger.Error("OpenAI API call failed", observability.Error(err))

		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == 401 {
			return nil, fmt.Errorf("%w: %w: %w", domain.ErrCompletion, domain.ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("%w: OpenAI API call failed: %w", domain.ErrCompletion, err)
	}

	logger.Debug("OpenAI API call succeeded",
		observability.Int("prompt_tokens", int(resp.Usage.PromptTokens)),
		observability.Int("completion_tokens", int(resp.Usage.CompletionTokens)),
	)

	return toResult(resp, time.Since(started)), nil
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
	return p.name
}

// toSDKParams builds a two-message conversation from the agent spec.
func toSDKParams(spec domain.AgentSpec, prompt string) openai.ChatCompletionNewParams {
	model := spec.ModelName
	if model == "" {
		model = defaultModelName
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if spec.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(spec.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(prompt))

	//nolint:exhaustruct // OpenAI SDK struct has many optional fields
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}

	if spec.Temperature > 0 {
		params.Temperature = openai.Float(spec.Temperature)
	}

	return params
}

// toResult converts SDK response to the service result shape.
func toResult(resp *openai.ChatCompletion, elapsed time.Duration) *domain.CompletionResult {
	content := ""
	finishReason := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		finishReason = resp.Choices[0].FinishReason
	}

	if strings.TrimSpace(content) == "" {
		content = domain.NoResponseSentinel
	}

	return &domain.CompletionResult{
		Response: content,
		Metadata: map[string]interface{}{
			"id":            resp.ID,
			"model":         resp.Model,
			"provider":      providerName,
			"finish_reason": finishReason,
		},
		Timestamp:      time.Unix(resp.Created, 0).UTC().Format(time.RFC3339),
		ProcessingTime: elapsed.Seconds(),
		TokenUsage: map[string]interface{}{
			"input_tokens":  int(resp.Usage.PromptTokens),
			"output_tokens": int(resp.Usage.CompletionTokens),
			"total_tokens":  int(resp.Usage.TotalTokens),
		},
	}
}
