package swarms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/davidbz/agentrunner/internal/domain"
	"github.com/davidbz/agentrunner/internal/observability"
)

const (
	opCompletion = "completion generation"

	// agentNotFoundDetail prefixes the detail the service reports while a newly
	// created agent is not yet visible to the completion endpoint. The service
	// offers no structured code for this condition.
	agentNotFoundDetail = "Error processing completion: 404"
)

// errAgentNotVisible marks a single not-found attempt; callers see domain.ErrAgentNotFound.
var errAgentNotVisible = errors.New("agent not visible yet")

// GenerateCompletion asks an agent to answer a prompt. Not-found replies,
// transport failures and unreadable bodies are retried after a fixed delay, up
// to req.MaxRetries attempts (client default when zero). A 401 fails at once.
// Any other JSON reply, including the "None" sentinel or an error status with
// a body, is returned unchanged.
func (c *Client) GenerateCompletion(
	ctx context.Context,
	req *domain.CompletionRequest,
) (*domain.CompletionResult, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request cannot be nil", domain.ErrCompletion)
	}

	if _, err := c.creds.APIKey(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCompletion, err)
	}

	callKey := strings.TrimSpace(req.APIKey)
	if callKey == "" {
		return nil, fmt.Errorf("%w: %w: per-call api key is empty", domain.ErrCompletion, domain.ErrNoCredential)
	}

	if req.AgentID == "" {
		return nil, fmt.Errorf("%w: agent id cannot be empty", domain.ErrCompletion)
	}

	maxRetries := req.MaxRetries
	if maxRetries <= 0 {
		maxRetries = c.completionMaxRetries
	}

	ctx = observability.WithAgentID(observability.WithOperation(ctx, "generate_completion"), req.AgentID)
	logger := observability.FromContext(ctx)

	headers := map[string]string{
		apiKeyHeader:    callKey,
		openAIKeyHeader: c.openAIAPIKey,
	}
	payload := map[string]string{
		"prompt":   req.Prompt,
		"agent_id": req.AgentID,
	}

	for attempt := 1; ; attempt++ {
		result, err := c.tryCompletion(ctx, headers, payload)
		if err == nil {
			logger.Info("completion generated",
				observability.Int("attempt", attempt),
				observability.Bool("empty", result.IsEmpty()))
			return result, nil
		}

		if domain.IsUnauthorized(err) {
			logger.Error("completion rejected the api key", observability.Error(err))
			return nil, fmt.Errorf("%w: %w", domain.ErrCompletion, err)
		}

		final := attempt >= maxRetries
		if errors.Is(err, errAgentNotVisible) {
			if final {
				return nil, fmt.Errorf("%w: %w: agent %s", domain.ErrCompletion, domain.ErrAgentNotFound, req.AgentID)
			}
			logger.Warn("agent not found, retrying",
				observability.Int("attempt", attempt),
				observability.Duration("delay", c.retryDelay))
		} else {
			if final {
				return nil, fmt.Errorf("%w: %w", domain.ErrCompletion, err)
			}
			logger.Warn("completion attempt failed, retrying",
				observability.Int("attempt", attempt),
				observability.Duration("delay", c.retryDelay),
				observability.Error(err))
		}

		if waitErr := c.sleep(ctx, c.retryDelay); waitErr != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrCompletion, waitErr)
		}
	}
}

// tryCompletion performs one attempt and classifies its outcome.
func (c *Client) tryCompletion(
	ctx context.Context,
	headers map[string]string,
	payload map[string]string,
) (*domain.CompletionResult, error) {
	resp, err := c.post(ctx, opCompletion, "/agent/completions", headers, payload)
	if err != nil {
		return nil, err
	}

	body, decodeErr := resp.decode(opCompletion)
	if decodeErr == nil && isAgentNotFound(body) {
		return nil, errAgentNotVisible
	}

	statusErr := resp.statusError(opCompletion)
	if domain.IsUnauthorized(statusErr) {
		return nil, statusErr
	}

	if decodeErr != nil {
		if statusErr != nil {
			return nil, fmt.Errorf("%w: %w", statusErr, decodeErr)
		}
		return nil, decodeErr
	}

	if statusErr != nil {
		observability.FromContext(ctx).Warn("completion returned an error status",
			observability.Int("status_code", resp.StatusCode),
			observability.String("detail", stringField(body, "detail")))
	}

	return &domain.CompletionResult{
		Response:       stringField(body, "response"),
		Metadata:       mapField(body, "metadata"),
		Timestamp:      body["timestamp"],
		ProcessingTime: body["processing_time"],
		TokenUsage:     mapField(body, "token_usage"),
		Detail:         stringField(body, "detail"),
	}, nil
}

// isAgentNotFound matches the service's not-found detail text.
func isAgentNotFound(body map[string]interface{}) bool {
	detail, ok := body["detail"].(string)
	return ok && strings.HasPrefix(detail, agentNotFoundDetail)
}
