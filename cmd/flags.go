package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/davidbz/agentrunner/internal/config"
)

// applyFlags parses command line arguments and overrides the matching
// settings in cfg. Flags left unset keep the environment value.
func applyFlags(cfg *config.Config, args []string) error {
	fs := pflag.NewFlagSet("agentrunner", pflag.ContinueOnError)

	provider := fs.StringP("provider", "p", cfg.Run.Provider, "agent service backend (swarms, openai, echo, auto)")
	username := fs.StringP("username", "u", cfg.Run.Username, "username to provision (random when empty)")
	prompt := fs.String("prompt", cfg.Run.Prompt, "prompt sent to the agent")
	systemPrompt := fs.String("system-prompt", cfg.Run.SystemPrompt, "system prompt of the created agent")
	model := fs.StringP("model", "m", cfg.Run.ModelName, "model backing the agent")
	temperature := fs.Float64("temperature", cfg.Run.Temperature, "sampling temperature of the agent")
	outputFile := fs.StringP("output", "o", cfg.Output.File, "result file (.json, .yaml or .yml)")
	redisAddr := fs.String("redis-addr", cfg.Output.RedisAddr, "also store the result in redis at this address")
	logLevel := fs.String("log-level", cfg.Log.Level, "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg.Run.Provider = *provider
	cfg.Run.Username = *username
	cfg.Run.Prompt = *prompt
	cfg.Run.SystemPrompt = *systemPrompt
	cfg.Run.ModelName = *model
	cfg.Run.Temperature = *temperature
	cfg.Output.File = *outputFile
	cfg.Output.RedisAddr = *redisAddr
	cfg.Log.Level = *logLevel

	return nil
}
