package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the failure modes of an agent service.
var (
	// ErrConfiguration indicates a required setting is missing. Never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrNoCredential indicates an operation was attempted without an API key.
	ErrNoCredential = errors.New("no credential available")

	// ErrUserCreation wraps any failure of the create-user operation.
	ErrUserCreation = errors.New("user creation failed")

	// ErrAPIKeyCreation wraps any failure of the create-api-key operation.
	ErrAPIKeyCreation = errors.New("api key creation failed")

	// ErrAgentCreation wraps any failure of the create-agent operation.
	ErrAgentCreation = errors.New("agent creation failed")

	// ErrCompletion wraps any failure of the generate-completion operation.
	ErrCompletion = errors.New("completion generation failed")

	// ErrUnauthorized indicates the service rejected the credential.
	ErrUnauthorized = errors.New("credential rejected")

	// ErrCredentialExhausted indicates re-provisioning never produced an accepted credential.
	ErrCredentialExhausted = errors.New("credential remained invalid after exhausting attempts")

	// ErrMalformedResponse indicates a success response missing a required field.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrAgentNotFound indicates the agent never became visible to the completion endpoint.
	ErrAgentNotFound = errors.New("agent not found after exhausting retries")

	// ErrEmptyResponse indicates a body was expected but none was received.
	ErrEmptyResponse = errors.New("empty response")

	// ErrInvalidJSON indicates the body could not be decoded as JSON.
	ErrInvalidJSON = errors.New("invalid JSON response")
)

// StatusError reports a non-2xx response from the service.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Is makes a 401 StatusError match ErrUnauthorized.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// IsUnauthorized reports whether err is an authentication rejection.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
