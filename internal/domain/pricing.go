package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

const tokensToPerK = 1000.0

// PricingConfig contains model pricing information.
type PricingConfig struct {
	InputCostPer1K  float64 // USD per 1K input tokens
	OutputCostPer1K float64 // USD per 1K output tokens
}

// CostCalculator estimates the cost of a completion's token usage.
type CostCalculator interface {
	// Calculate returns the total cost for a given model and usage.
	Calculate(ctx context.Context, model string, usage Usage) (float64, error)
}

// PricingRegistry maintains pricing information for models.
type PricingRegistry interface {
	// GetPricing returns pricing config for a model.
	GetPricing(ctx context.Context, model string) (PricingConfig, error)

	// RegisterPricing adds pricing for a model.
	RegisterPricing(ctx context.Context, model string, config PricingConfig) error
}

// InMemoryPricingRegistry stores pricing configs in memory.
type InMemoryPricingRegistry struct {
	mu      sync.RWMutex
	pricing map[string]PricingConfig
}

// NewInMemoryPricingRegistry creates a new in-memory pricing registry.
func NewInMemoryPricingRegistry() *InMemoryPricingRegistry {
	return &InMemoryPricingRegistry{
		mu:      sync.RWMutex{},
		pricing: make(map[string]PricingConfig),
	}
}

// GetPricing retrieves pricing for a model.
func (r *InMemoryPricingRegistry) GetPricing(_ context.Context, model string) (PricingConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	config, exists := r.pricing[model]
	if !exists {
		return PricingConfig{}, fmt.Errorf("pricing not found for model: %s", model)
	}
	return config, nil
}

// RegisterPricing adds pricing for a model.
func (r *InMemoryPricingRegistry) RegisterPricing(_ context.Context, model string, config PricingConfig) error {
	if model == "" {
		return errors.New("model cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pricing[model] = config
	return nil
}

// StandardCostCalculator implements token-based cost estimation.
type StandardCostCalculator struct {
	pricingRegistry PricingRegistry
}

// NewStandardCostCalculator creates a new cost calculator.
func NewStandardCostCalculator(registry PricingRegistry) *StandardCostCalculator {
	return &StandardCostCalculator{
		pricingRegistry: registry,
	}
}

// Calculate computes the estimated cost. Unknown models cost zero.
func (c *StandardCostCalculator) Calculate(ctx context.Context, model string, usage Usage) (float64, error) {
	if model == "" {
		return 0, errors.New("model cannot be empty")
	}

	pricing, err := c.pricingRegistry.GetPricing(ctx, model)
	if err != nil {
		//nolint:nilerr // unpriced models are not a run failure
		return 0, nil
	}

	inputCost := float64(usage.PromptTokens) / tokensToPerK * pricing.InputCostPer1K
	outputCost := float64(usage.CompletionTokens) / tokensToPerK * pricing.OutputCostPer1K

	return inputCost + outputCost, nil
}
