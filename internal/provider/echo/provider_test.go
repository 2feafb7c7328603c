package echo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/agentrunner/internal/domain"
	"github.com/davidbz/agentrunner/internal/provider/echo"
)

func provision(t *testing.T, provider *echo.Provider) (*domain.User, *domain.Agent) {
	t.Helper()
	ctx := context.Background()

	user, err := provider.CreateUser(ctx, "swarms_user_1234")
	require.NoError(t, err)

	key, err := provider.CreateAPIKey(ctx, user.UserID)
	require.NoError(t, err)
	require.NoError(t, provider.RotateAPIKey(key.Key))

	agent, err := provider.CreateAgent(ctx, domain.AgentSpec{Name: "Agent_swarms_user_1234", ModelName: "gpt-4"})
	require.NoError(t, err)

	return user, agent
}

func TestNewProvider(t *testing.T) {
	provider := echo.NewProvider()

	require.NotNil(t, provider)
	require.Equal(t, "echo", provider.Name())
	require.True(t, provider.Credentials().HasAPIKey())
}

func TestCreateUser_InstallsCredentials(t *testing.T) {
	provider := echo.NewProvider()

	user, err := provider.CreateUser(context.Background(), "someone")

	require.NoError(t, err)
	require.Equal(t, domain.Credentials{UserID: user.UserID, APIKey: user.APIKey}, provider.Credentials())
}

func TestCreateUser_EmptyUsername(t *testing.T) {
	provider := echo.NewProvider()

	_, err := provider.CreateUser(context.Background(), "")

	require.ErrorIs(t, err, domain.ErrUserCreation)
}

func TestCreateAPIKey_UnknownUser(t *testing.T) {
	provider := echo.NewProvider()

	_, err := provider.CreateAPIKey(context.Background(), "missing")

	require.ErrorIs(t, err, domain.ErrAPIKeyCreation)
}

func TestGenerateCompletion_Success(t *testing.T) {
	provider := echo.NewProvider()
	_, agent := provision(t, provider)

	result, err := provider.GenerateCompletion(context.Background(), &domain.CompletionRequest{
		APIKey:  provider.Credentials().APIKey,
		AgentID: agent.ID,
		Prompt:  "What is the capital of France?",
	})

	require.NoError(t, err)
	require.Equal(t, "[Agent_swarms_user_1234]: What is the capital of France?", result.Response)
	require.False(t, result.IsEmpty())
	require.Equal(t, "gpt-4", result.Metadata["model_name"])
	require.Equal(t, 6, result.TokenUsage["input_tokens"])
	require.Equal(t, 7, result.TokenUsage["output_tokens"])
	require.Equal(t, 13, result.TokenUsage["total_tokens"])
}

func TestGenerateCompletion_EmptyPromptYieldsSentinel(t *testing.T) {
	provider := echo.NewProvider()
	_, agent := provision(t, provider)

	result, err := provider.GenerateCompletion(context.Background(), &domain.CompletionRequest{
		APIKey:  provider.Credentials().APIKey,
		AgentID: agent.ID,
	})

	require.NoError(t, err)
	require.True(t, result.IsEmpty())
}

func TestGenerateCompletion_Failures(t *testing.T) {
	provider := echo.NewProvider()
	_, agent := provision(t, provider)
	ctx := context.Background()

	t.Run("unknown agent", func(t *testing.T) {
		_, err := provider.GenerateCompletion(ctx, &domain.CompletionRequest{
			APIKey:  provider.Credentials().APIKey,
			AgentID: "missing",
			Prompt:  "hi",
		})
		require.ErrorIs(t, err, domain.ErrAgentNotFound)
	})

	t.Run("unknown per-call key", func(t *testing.T) {
		_, err := provider.GenerateCompletion(ctx, &domain.CompletionRequest{
			APIKey:  "forged",
			AgentID: agent.ID,
			Prompt:  "hi",
		})
		require.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("nil request", func(t *testing.T) {
		_, err := provider.GenerateCompletion(ctx, nil)
		require.ErrorIs(t, err, domain.ErrCompletion)
	})
}

func TestRotateAPIKey_RejectsForeignKey(t *testing.T) {
	provider := echo.NewProvider()

	err := provider.RotateAPIKey("not-issued-here")

	require.ErrorIs(t, err, domain.ErrUnauthorized)
}
