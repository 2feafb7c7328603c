package routing

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/davidbz/agentrunner/internal/domain"
)

// Auto asks the router to pick the first registered backend in preference order.
const Auto = "auto"

// DefaultPreference lists backends from most to least preferred.
//
//nolint:gochecknoglobals // read-only ordering
var DefaultPreference = []string{"swarms", "openai", "echo"}

// SimpleRouter selects the agent service backend for a run.
type SimpleRouter struct {
	registry   domain.ServiceRegistry
	preference []string
}

// NewRouter creates a new router.
func NewRouter(registry domain.ServiceRegistry) *SimpleRouter {
	return &SimpleRouter{
		registry:   registry,
		preference: DefaultPreference,
	}
}

// Route returns the backend registered under name, or the preferred one for Auto.
func (r *SimpleRouter) Route(ctx context.Context, name string) (domain.AgentService, error) {
	if name == "" {
		return nil, errors.New("provider name is required")
	}

	if name != Auto {
		service, err := r.registry.Get(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("%w: provider %q is not available: %w", domain.ErrConfiguration, name, err)
		}
		return service, nil
	}

	names, err := r.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no providers available", domain.ErrConfiguration)
	}

	for _, preferred := range r.preference {
		if !slices.Contains(names, preferred) {
			continue
		}

		service, getErr := r.registry.Get(ctx, preferred)
		if getErr != nil {
			continue
		}
		return service, nil
	}

	// Nothing preferred is registered; fall back to the first by name.
	return r.registry.Get(ctx, names[0])
}
