// Package swarms implements domain.AgentService against the hosted agent API.
// It owns the session credentials and the retry policy around agent creation
// (re-provisioning on a rejected key) and completion (fixed-delay retry while
// a new agent is not yet visible).
package swarms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/davidbz/agentrunner/internal/domain"
	"github.com/davidbz/agentrunner/internal/observability"
)

const (
	providerName = "swarms"

	defaultBaseURL              = "https://api.swarms.ai/v1"
	defaultAgentMaxAttempts     = 3
	defaultCompletionMaxRetries = 3
	defaultCompletionRetryDelay = 5 * time.Second

	apiKeyHeader    = "api-key"
	openAIKeyHeader = "OpenAI-API-Key"

	maxLoggedBody = 2048
)

// Interface compliance check.
var _ domain.AgentService = (*Client)(nil)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Client talks to the agent service. It is not safe for concurrent use:
// the held credentials are rewritten in place.
type Client struct {
	baseURL              string
	openAIAPIKey         string
	httpClient           *http.Client
	creds                *domain.CredentialStore
	agentMaxAttempts     int
	completionMaxRetries int
	retryDelay           time.Duration
	sleep                SleepFunc
	newUsername          func() string
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSleep replaces the wait used between completion attempts.
func WithSleep(sleep SleepFunc) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithUsernameGenerator sets how re-provisioned usernames are chosen.
func WithUsernameGenerator(gen func() string) Option {
	return func(c *Client) { c.newUsername = gen }
}

// NewClient creates a new agent service client. The secret is required.
func NewClient(config Config, opts ...Option) (*Client, error) {
	secret := strings.TrimSpace(config.OpenAIAPIKey)
	if secret == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", domain.ErrConfiguration)
	}

	c := &Client{
		baseURL:              strings.TrimRight(config.BaseURL, "/"),
		openAIAPIKey:         secret,
		httpClient:           &http.Client{Timeout: time.Duration(config.Timeout) * time.Second},
		creds:                domain.NewCredentialStore(secret),
		agentMaxAttempts:     config.AgentMaxAttempts,
		completionMaxRetries: config.CompletionMaxRetries,
		retryDelay:           config.CompletionRetryDelay,
		sleep:                sleepContext,
		newUsername:          func() string { return domain.RandomUsername("user") },
	}

	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.agentMaxAttempts <= 0 {
		c.agentMaxAttempts = defaultAgentMaxAttempts
	}
	if c.completionMaxRetries <= 0 {
		c.completionMaxRetries = defaultCompletionMaxRetries
	}
	if c.retryDelay <= 0 {
		c.retryDelay = defaultCompletionRetryDelay
	}

	for _, o := range opts {
		o(c)
	}

	return c, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return providerName
}

// Credentials returns a snapshot of the held credentials.
func (c *Client) Credentials() domain.Credentials {
	return c.creds.Snapshot()
}

// RotateAPIKey switches the held key to one minted by CreateAPIKey.
func (c *Client) RotateAPIKey(apiKey string) error {
	return c.creds.Rotate(apiKey)
}

// apiResponse is a raw service reply.
type apiResponse struct {
	StatusCode int
	Raw        []byte
}

func (r *apiResponse) ok() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

func (r *apiResponse) statusError(operation string) error {
	if r.ok() {
		return nil
	}
	return &domain.StatusError{
		Operation:  operation,
		StatusCode: r.StatusCode,
		Body:       truncate(r.Raw),
	}
}

// decode parses the body as a JSON object. 204 yields an empty object.
func (r *apiResponse) decode(operation string) (map[string]interface{}, error) {
	if r.StatusCode == http.StatusNoContent {
		return map[string]interface{}{}, nil
	}

	if len(bytes.TrimSpace(r.Raw)) == 0 {
		return nil, fmt.Errorf("%w from %s", domain.ErrEmptyResponse, operation)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(r.Raw, &body); err != nil {
		return nil, fmt.Errorf("%w from %s: %w (raw response: %s)", domain.ErrInvalidJSON, operation, err, truncate(r.Raw))
	}

	return body, nil
}

// post sends a JSON request. Errors are transport-level only; status codes are left to the caller.
func (c *Client) post(
	ctx context.Context,
	operation string,
	path string,
	headers map[string]string,
	payload interface{},
) (*apiResponse, error) {
	logger := observability.FromContext(ctx)

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", operation, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", operation, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	logger.Debug("sending request",
		observability.String("endpoint", httpReq.URL.String()),
		observability.Secret("api_key", headers[apiKeyHeader]),
		observability.Int("body_size", len(reqBody)))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", operation, err)
	}

	logger.Debug("received response",
		observability.Int("status_code", resp.StatusCode),
		observability.String("body", truncate(raw)))

	return &apiResponse{
		StatusCode: resp.StatusCode,
		Raw:        raw,
	}, nil
}

// sleepContext waits for d unless ctx ends first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// stringField reads a scalar field as a string. Missing and null yield "".
func stringField(body map[string]interface{}, key string) string {
	switch v := body[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}

func mapField(body map[string]interface{}, key string) map[string]interface{} {
	if m, ok := body[key].(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func truncate(raw []byte) string {
	if len(raw) <= maxLoggedBody {
		return string(raw)
	}
	return string(raw[:maxLoggedBody]) + "..."
}

