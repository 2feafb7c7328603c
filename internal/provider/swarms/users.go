package swarms

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/davidbz/agentrunner/internal/domain"
	"github.com/davidbz/agentrunner/internal/observability"
)

const (
	opCreateUser   = "user creation"
	opCreateAPIKey = "API key creation"

	apiKeyName = "new_api_key"
)

// CreateUser provisions an account and installs the returned credential. No retry.
func (c *Client) CreateUser(ctx context.Context, username string) (*domain.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, fmt.Errorf("%w: username cannot be empty", domain.ErrUserCreation)
	}

	ctx = observability.WithOperation(ctx, "create_user")
	logger := observability.FromContext(ctx)
	logger.Info("creating user", observability.String("username", username))

	resp, err := c.post(ctx, opCreateUser, "/users", nil, map[string]string{"username": username})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUserCreation, err)
	}

	if statusErr := resp.statusError(opCreateUser); statusErr != nil {
		logger.Error("user creation rejected", observability.Error(statusErr))
		return nil, fmt.Errorf("%w: %w", domain.ErrUserCreation, statusErr)
	}

	body, err := resp.decode(opCreateUser)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUserCreation, err)
	}

	user := &domain.User{
		Username: username,
		UserID:   stringField(body, "user_id"),
		APIKey:   stringField(body, "api_key"),
	}
	if user.APIKey == "" {
		return nil, fmt.Errorf("%w: %w: no api_key in response", domain.ErrUserCreation, domain.ErrMalformedResponse)
	}

	c.creds.Install(user.APIKey, user.UserID)

	logger.Info("user created",
		observability.String("user_id", user.UserID),
		observability.Secret("api_key", user.APIKey))

	return user, nil
}

// CreateAPIKey mints a new key for userID, authenticating with the held key. No retry.
// The held key is not changed; callers rotate explicitly.
func (c *Client) CreateAPIKey(ctx context.Context, userID string) (*domain.APIKey, error) {
	apiKey, err := c.creds.APIKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAPIKeyCreation, err)
	}

	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id cannot be empty", domain.ErrAPIKeyCreation)
	}

	ctx = observability.WithOperation(ctx, "create_api_key")
	logger := observability.FromContext(ctx)
	logger.Info("creating api key", observability.String("user_id", userID))

	path := "/users/" + url.PathEscape(userID) + "/api-keys"
	resp, err := c.post(ctx, opCreateAPIKey, path,
		map[string]string{apiKeyHeader: apiKey},
		map[string]string{"name": apiKeyName},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAPIKeyCreation, err)
	}

	if statusErr := resp.statusError(opCreateAPIKey); statusErr != nil {
		logger.Error("api key creation rejected", observability.Error(statusErr))
		return nil, fmt.Errorf("%w: %w", domain.ErrAPIKeyCreation, statusErr)
	}

	body, err := resp.decode(opCreateAPIKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAPIKeyCreation, err)
	}

	key := &domain.APIKey{
		Key:    stringField(body, "key"),
		Name:   stringField(body, "name"),
		Fields: body,
	}
	if key.Key == "" {
		return nil, fmt.Errorf("%w: %w: no key in response", domain.ErrAPIKeyCreation, domain.ErrMalformedResponse)
	}

	logger.Info("api key created", observability.Secret("key", key.Key))

	return key, nil
}
