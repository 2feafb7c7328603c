package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/agentrunner/internal/observability"
	"github.com/davidbz/agentrunner/internal/output"
	"github.com/davidbz/agentrunner/internal/provider/openai"
	"github.com/davidbz/agentrunner/internal/provider/swarms"
)

// Config represents the runner configuration.
type Config struct {
	Log    observability.Config
	Swarms swarms.Config
	OpenAI openai.Config
	Run    RunConfig
	Output output.Config
}

// RunConfig describes the agent to create and the prompt to send it.
type RunConfig struct {
	Provider     string  `env:"AGENT_PROVIDER"      envDefault:"swarms"`
	Username     string  `env:"AGENT_USERNAME"`
	SystemPrompt string  `env:"AGENT_SYSTEM_PROMPT" envDefault:"You are an AI specialized in answering questions about geography."`
	ModelName    string  `env:"AGENT_MODEL"         envDefault:"gpt-4"`
	Temperature  float64 `env:"AGENT_TEMPERATURE"   envDefault:"0.7"`
	Prompt       string  `env:"AGENT_PROMPT"        envDefault:"What is the capital of France?"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out

	Log    *observability.Config
	Swarms *swarms.Config
	OpenAI *openai.Config
	Run    *RunConfig
	Output *output.Config
}

// Load loads environment files and parses configuration.
func Load() (*Config, error) {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	return &cfg, nil
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		Out:    dig.Out{},
		Log:    &cfg.Log,
		Swarms: &cfg.Swarms,
		OpenAI: &cfg.OpenAI,
		Run:    &cfg.Run,
		Output: &cfg.Output,
	}
}
