package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/davidbz/agentrunner/internal/observability"
)

const (
	noAnswerText   = "API returned no response"
	missingAnswer  = "No response"
	agentPrefix    = "Agent_"
	usernamePrefix = "swarms_user"
)

// RunRequest describes one provisioning-and-completion run.
type RunRequest struct {
	// Username is generated when empty.
	Username     string
	SystemPrompt string
	ModelName    string
	Temperature  float64
	Prompt       string
}

// RunRecord is the structured outcome of a run handed to result sinks.
type RunRecord struct {
	RunID      string            `json:"run_id,omitempty"     yaml:"run_id,omitempty"`
	Provider   string            `json:"provider,omitempty"   yaml:"provider,omitempty"`
	User       *UserRecord       `json:"user,omitempty"       yaml:"user,omitempty"`
	Agent      *AgentRecord      `json:"agent,omitempty"      yaml:"agent,omitempty"`
	Completion *CompletionRecord `json:"completion,omitempty" yaml:"completion,omitempty"`
}

// UserRecord captures the provisioned account.
type UserRecord struct {
	Username string `json:"username" yaml:"username"`
	APIKey   string `json:"api_key"  yaml:"api_key"`
	UserID   string `json:"user_id"  yaml:"user_id"`
}

// AgentRecord captures the registered agent.
type AgentRecord struct {
	AgentID   string `json:"agent_id"   yaml:"agent_id"`
	AgentName string `json:"agent_name" yaml:"agent_name"`
}

// CompletionRecord captures the completion step, including a failed one.
type CompletionRecord struct {
	Prompt         string                 `json:"prompt"                    yaml:"prompt"`
	Response       string                 `json:"response"                  yaml:"response"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"        yaml:"metadata,omitempty"`
	Timestamp      interface{}            `json:"timestamp,omitempty"       yaml:"timestamp,omitempty"`
	ProcessingTime interface{}            `json:"processing_time,omitempty" yaml:"processing_time,omitempty"`
	TokenUsage     map[string]interface{} `json:"token_usage,omitempty"     yaml:"token_usage,omitempty"`
	EstimatedCost  float64                `json:"estimated_cost,omitempty"  yaml:"estimated_cost,omitempty"`
	Failed         bool                   `json:"failed,omitempty"          yaml:"failed,omitempty"`
}

// RunService drives the four agent service operations in order.
type RunService struct {
	service        AgentService
	costCalculator CostCalculator
	events         EventPublisher
	sinks          []ResultSink
}

// NewRunService creates a new run service (DI constructor).
func NewRunService(
	service AgentService,
	costCalculator CostCalculator,
	events EventPublisher,
	sinks []ResultSink,
) *RunService {
	return &RunService{
		service:        service,
		costCalculator: costCalculator,
		events:         events,
		sinks:          sinks,
	}
}

// Provider returns the name of the backend runs are sent to.
func (r *RunService) Provider() string {
	return r.service.Name()
}

// Run provisions a user, rotates to a freshly minted key, registers an agent and
// asks it for a completion. A failed completion is recorded, not returned.
// The record is persisted once an agent exists.
func (r *RunService) Run(ctx context.Context, req *RunRequest) (*RunRecord, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	if req.Prompt == "" {
		return nil, errors.New("prompt cannot be empty")
	}

	username := req.Username
	if username == "" {
		username = RandomUsername(usernamePrefix)
	}

	logger := observability.FromContext(ctx)
	record := &RunRecord{
		RunID:    observability.GetRunID(ctx),
		Provider: r.service.Name(),
	}

	logger.Info("step 1: creating user", observability.String("username", username))
	if _, err := r.service.CreateUser(ctx, username); err != nil {
		return record, err
	}

	creds := r.service.Credentials()
	record.User = &UserRecord{
		Username: username,
		APIKey:   creds.APIKey,
		UserID:   creds.UserID,
	}
	ctx = observability.WithUserID(ctx, creds.UserID)
	r.publish(ctx, "run.user.created", map[string]interface{}{"username": username})

	observability.FromContext(ctx).Info("step 2: creating api key")
	key, err := r.service.CreateAPIKey(ctx, creds.UserID)
	if err != nil {
		return record, err
	}
	if rotateErr := r.service.RotateAPIKey(key.Key); rotateErr != nil {
		return record, fmt.Errorf("%w: %w", ErrAPIKeyCreation, rotateErr)
	}
	r.publish(ctx, "run.api_key.created", nil)

	agentName := agentPrefix + username
	observability.FromContext(ctx).Info("step 3: creating agent", observability.String("agent_name", agentName))
	agent, err := r.service.CreateAgent(ctx, AgentSpec{
		Name:         agentName,
		SystemPrompt: req.SystemPrompt,
		ModelName:    req.ModelName,
		Temperature:  req.Temperature,
	})
	if err != nil {
		return record, err
	}

	record.Agent = &AgentRecord{
		AgentID:   agent.ID,
		AgentName: agentName,
	}
	ctx = observability.WithAgentID(ctx, agent.ID)
	r.publish(ctx, "run.agent.created", map[string]interface{}{"agent_name": agentName})

	observability.FromContext(ctx).Info("step 4: generating completion")
	result, err := r.service.GenerateCompletion(ctx, &CompletionRequest{
		APIKey:  r.service.Credentials().APIKey,
		AgentID: agent.ID,
		Prompt:  req.Prompt,
	})
	record.Completion = r.completionRecord(ctx, req, result, err)
	r.publish(ctx, "run.completion.finished", map[string]interface{}{"failed": record.Completion.Failed})

	if saveErr := r.persist(ctx, record); saveErr != nil {
		return record, saveErr
	}

	return record, nil
}

func (r *RunService) completionRecord(
	ctx context.Context,
	req *RunRequest,
	result *CompletionResult,
	err error,
) *CompletionRecord {
	logger := observability.FromContext(ctx)

	if err != nil {
		logger.Error("failed to generate completion", observability.Error(err))
		return &CompletionRecord{
			Prompt:   req.Prompt,
			Response: "Error: " + err.Error(),
			Failed:   true,
		}
	}

	completion := &CompletionRecord{
		Prompt:         req.Prompt,
		Response:       result.Response,
		Metadata:       result.Metadata,
		Timestamp:      result.Timestamp,
		ProcessingTime: result.ProcessingTime,
		TokenUsage:     result.TokenUsage,
	}

	switch {
	case result.IsEmpty():
		logger.Warn("the service returned no answer")
		completion.Response = noAnswerText
	case result.Response == "":
		completion.Response = missingAnswer
	}

	if r.costCalculator != nil && req.ModelName != "" {
		usage := UsageFromTokenMap(result.TokenUsage)
		cost, costErr := r.costCalculator.Calculate(ctx, req.ModelName, usage)
		if costErr != nil {
			logger.Debug("failed to estimate cost", observability.Error(costErr))
		}
		completion.EstimatedCost = cost
	}

	return completion
}

func (r *RunService) persist(ctx context.Context, record *RunRecord) error {
	logger := observability.FromContext(ctx)

	var errs []error
	for _, sink := range r.sinks {
		if err := sink.Save(ctx, record); err != nil {
			logger.Error("failed to save run record",
				observability.String("sink", sink.Name()),
				observability.Error(err))
			errs = append(errs, fmt.Errorf("sink %s: %w", sink.Name(), err))
			continue
		}
		logger.Info("run record saved", observability.String("sink", sink.Name()))
		r.publish(ctx, "run.saved", map[string]interface{}{"sink": sink.Name()})
	}

	return errors.Join(errs...)
}

func (r *RunService) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if r.events == nil {
		return
	}
	r.events.Publish(ctx, eventType, data)
}
