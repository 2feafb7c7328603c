// Package mocks provides testify mocks for the domain interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/davidbz/agentrunner/internal/domain"
)

// MockAgentService is a mock of domain.AgentService.
type MockAgentService struct {
	mock.Mock
}

// NewMockAgentService creates a mock whose expectations are asserted on cleanup.
func NewMockAgentService(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockAgentService {
	m := &MockAgentService{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAgentService) CreateUser(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *MockAgentService) CreateAPIKey(ctx context.Context, userID string) (*domain.APIKey, error) {
	args := m.Called(ctx, userID)
	key, _ := args.Get(0).(*domain.APIKey)
	return key, args.Error(1)
}

func (m *MockAgentService) CreateAgent(ctx context.Context, spec domain.AgentSpec) (*domain.Agent, error) {
	args := m.Called(ctx, spec)
	agent, _ := args.Get(0).(*domain.Agent)
	return agent, args.Error(1)
}

func (m *MockAgentService) GenerateCompletion(
	ctx context.Context,
	req *domain.CompletionRequest,
) (*domain.CompletionResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*domain.CompletionResult)
	return result, args.Error(1)
}

func (m *MockAgentService) Credentials() domain.Credentials {
	args := m.Called()
	creds, _ := args.Get(0).(domain.Credentials)
	return creds
}

func (m *MockAgentService) RotateAPIKey(apiKey string) error {
	return m.Called(apiKey).Error(0)
}

func (m *MockAgentService) Name() string {
	return m.Called().String(0)
}

// MockResultSink is a mock of domain.ResultSink.
type MockResultSink struct {
	mock.Mock
}

// NewMockResultSink creates a mock whose expectations are asserted on cleanup.
func NewMockResultSink(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockResultSink {
	m := &MockResultSink{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockResultSink) Save(ctx context.Context, record *domain.RunRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *MockResultSink) Name() string {
	return m.Called().String(0)
}

// MockEventPublisher is a mock of domain.EventPublisher.
type MockEventPublisher struct {
	mock.Mock
}

// NewMockEventPublisher creates a mock whose expectations are asserted on cleanup.
func NewMockEventPublisher(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockEventPublisher {
	m := &MockEventPublisher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockEventPublisher) Publish(ctx context.Context, eventType string, data map[string]interface{}) {
	m.Called(ctx, eventType, data)
}
