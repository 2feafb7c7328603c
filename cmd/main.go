package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/davidbz/agentrunner/internal/config"
	"github.com/davidbz/agentrunner/internal/domain"
	"github.com/davidbz/agentrunner/internal/observability"
	"github.com/davidbz/agentrunner/internal/output"
	"github.com/davidbz/agentrunner/internal/provider/echo"
	"github.com/davidbz/agentrunner/internal/provider/openai"
	"github.com/davidbz/agentrunner/internal/provider/registry"
	"github.com/davidbz/agentrunner/internal/provider/swarms"
	"github.com/davidbz/agentrunner/internal/routing"
)

// ErrProviderNotConfigured indicates that a provider is not configured and should be skipped.
var ErrProviderNotConfigured = errors.New("provider not configured")

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if flagErr := applyFlags(cfg, os.Args[1:]); flagErr != nil {
		if errors.Is(flagErr, pflag.ErrHelp) {
			return
		}
		log.Fatalf("Invalid arguments: %v", flagErr)
	}

	container := buildContainer(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = container.Invoke(func(
		runner *domain.RunService,
		runCfg *config.RunConfig,
		sinks []domain.ResultSink,
		logger *zap.Logger,
	) error {
		defer func() { _ = logger.Sync() }()
		defer closeSinks(sinks, logger)
		return run(ctx, runner, runCfg)
	})
	if err != nil {
		stop()
		log.Fatalf("Run failed: %v", err)
	}
}

func run(ctx context.Context, runner *domain.RunService, runCfg *config.RunConfig) error {
	ctx = observability.WithRunID(ctx, observability.GenerateRunID())
	ctx = observability.WithProvider(ctx, runner.Provider())
	logger := observability.FromContext(ctx)

	logger.Info("starting run",
		observability.String("model", runCfg.ModelName),
		observability.Float64("temperature", runCfg.Temperature))

	record, err := runner.Run(ctx, &domain.RunRequest{
		Username:     runCfg.Username,
		SystemPrompt: runCfg.SystemPrompt,
		ModelName:    runCfg.ModelName,
		Temperature:  runCfg.Temperature,
		Prompt:       runCfg.Prompt,
	})
	if err != nil {
		logger.Error("run failed", observability.Error(err))
		return err
	}

	logger.Info("run finished",
		observability.String("agent_id", record.Agent.AgentID),
		observability.Bool("completion_failed", record.Completion.Failed),
		observability.Float64("estimated_cost", record.Completion.EstimatedCost))

	_, err = fmt.Fprintln(os.Stdout, record.Completion.Response)
	return err
}

func buildContainer(cfg *config.Config) *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(func() *config.Config { return cfg }); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Provide(func(logger *zap.Logger) domain.EventPublisher {
		return observability.NewEventBus(logger)
	}); err != nil {
		log.Fatalf("Failed to provide event bus: %v", err)
	}

	// Service Registry
	if err := container.Provide(func() domain.ServiceRegistry {
		return registry.NewRegistry()
	}); err != nil {
		log.Fatalf("Failed to provide registry: %v", err)
	}

	// Swarms Client
	if err := container.Provide(func(swarmsCfg *swarms.Config) (*swarms.Client, error) {
		if swarmsCfg.OpenAIAPIKey == "" {
			return nil, ErrProviderNotConfigured
		}
		return swarms.NewClient(*swarmsCfg)
	}); err != nil {
		log.Fatalf("Failed to provide swarms client: %v", err)
	}

	// OpenAI Provider
	if err := container.Provide(func(openaiCfg *openai.Config) (*openai.Provider, error) {
		if openaiCfg.APIKey == "" {
			return nil, ErrProviderNotConfigured
		}
		return openai.NewProvider(*openaiCfg)
	}); err != nil {
		log.Fatalf("Failed to provide OpenAI provider: %v", err)
	}

	// Register providers with registry (invoked for side effects).
	// Each remote backend is optional; the echo backend is always available.
	if err := container.Invoke(func(reg domain.ServiceRegistry, logger *zap.Logger) error {
		return registerProviders(container, reg, logger)
	}); err != nil {
		log.Fatalf("Failed to register providers: %v", err)
	}

	// Pricing
	if err := container.Provide(func() (domain.PricingRegistry, error) {
		pricing := domain.NewInMemoryPricingRegistry()
		if err := openai.RegisterPricing(context.Background(), pricing); err != nil {
			return nil, err
		}
		return pricing, nil
	}); err != nil {
		log.Fatalf("Failed to provide pricing registry: %v", err)
	}
	if err := container.Provide(func(pricing domain.PricingRegistry) domain.CostCalculator {
		return domain.NewStandardCostCalculator(pricing)
	}); err != nil {
		log.Fatalf("Failed to provide cost calculator: %v", err)
	}

	// Result Sinks
	if err := container.Provide(newSinks); err != nil {
		log.Fatalf("Failed to provide result sinks: %v", err)
	}

	// Selected Backend
	if err := container.Provide(func(reg domain.ServiceRegistry, runCfg *config.RunConfig) (domain.AgentService, error) {
		return routing.NewRouter(reg).Route(context.Background(), runCfg.Provider)
	}); err != nil {
		log.Fatalf("Failed to provide agent service: %v", err)
	}

	// Domain Services
	if err := container.Provide(domain.NewRunService); err != nil {
		log.Fatalf("Failed to provide run service: %v", err)
	}

	return container
}

func registerProviders(container *dig.Container, reg domain.ServiceRegistry, logger *zap.Logger) error {
	ctx := context.Background()

	if err := reg.Register(ctx, echo.NewProvider()); err != nil {
		return fmt.Errorf("failed to register echo provider: %w", err)
	}

	err := container.Invoke(func(client *swarms.Client) error {
		return reg.Register(ctx, client)
	})
	switch {
	case errors.Is(err, ErrProviderNotConfigured):
		logger.Info("swarms provider not configured, skipping")
	case err != nil:
		return fmt.Errorf("failed to register swarms provider: %w", err)
	}

	err = container.Invoke(func(provider *openai.Provider) error {
		return reg.Register(ctx, provider)
	})
	switch {
	case errors.Is(err, ErrProviderNotConfigured):
		logger.Info("openai provider not configured, skipping")
	case err != nil:
		return fmt.Errorf("failed to register OpenAI provider: %w", err)
	}

	return nil
}

// closeSinks releases sinks that hold connections.
func closeSinks(sinks []domain.ResultSink, logger *zap.Logger) {
	for _, sink := range sinks {
		closer, ok := sink.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			logger.Warn("failed to close result sink",
				observability.String("sink", sink.Name()),
				observability.Error(err))
		}
	}
}

func newSinks(outputCfg *output.Config) ([]domain.ResultSink, error) {
	sinks := make([]domain.ResultSink, 0, 2)

	if outputCfg.File != "" {
		fileSink, err := output.NewFileSink(outputCfg.File)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fileSink)
	}

	if outputCfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     outputCfg.RedisAddr,
			Password: outputCfg.RedisPassword,
			DB:       outputCfg.RedisDB,
		})
		redisSink, err := output.NewRedisSink(client, outputCfg.RedisTTL)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, redisSink)
	}

	return sinks, nil
}
