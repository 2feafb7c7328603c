package routing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/agentrunner/internal/domain"
	"github.com/davidbz/agentrunner/internal/mocks"
	"github.com/davidbz/agentrunner/internal/provider/registry"
	"github.com/davidbz/agentrunner/internal/routing"
)

func registryWith(t *testing.T, names ...string) *registry.Registry {
	t.Helper()

	reg := registry.NewRegistry()
	for _, name := range names {
		service := mocks.NewMockAgentService(t)
		service.On("Name").Return(name).Maybe()
		require.NoError(t, reg.Register(context.Background(), service))
	}
	return reg
}

func TestSimpleRouter_Route(t *testing.T) {
	tests := []struct {
		name       string
		registered []string
		requested  string
		expected   string
		expectErr  error
	}{
		{
			name:       "explicit provider",
			registered: []string{"echo", "swarms"},
			requested:  "echo",
			expected:   "echo",
		},
		{
			name:       "auto prefers swarms",
			registered: []string{"echo", "openai", "swarms"},
			requested:  routing.Auto,
			expected:   "swarms",
		},
		{
			name:       "auto falls back to openai",
			registered: []string{"echo", "openai"},
			requested:  routing.Auto,
			expected:   "openai",
		},
		{
			name:       "auto with only unknown backends",
			registered: []string{"zeta", "alpha"},
			requested:  routing.Auto,
			expected:   "alpha",
		},
		{
			name:       "explicit provider not registered",
			registered: []string{"echo"},
			requested:  "swarms",
			expectErr:  domain.ErrConfiguration,
		},
		{
			name:      "auto with empty registry",
			requested: routing.Auto,
			expectErr: domain.ErrConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := routing.NewRouter(registryWith(t, tt.registered...))

			service, err := router.Route(context.Background(), tt.requested)

			if tt.expectErr != nil {
				require.ErrorIs(t, err, tt.expectErr)
				require.Nil(t, service)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.expected, service.Name())
		})
	}
}

func TestSimpleRouter_Route_EmptyName(t *testing.T) {
	router := routing.NewRouter(registryWith(t, "echo"))

	_, err := router.Route(context.Background(), "")

	require.Error(t, err)
}
