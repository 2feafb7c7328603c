package swarms

import "time"

// Config contains agent service client configuration.
//   - OpenAIAPIKey: required secret, seeds the credential and is forwarded on completions
//   - BaseURL: service root, e.g. https://api.swarms.ai/v1
//   - Timeout: per-request HTTP timeout in seconds
//   - AgentMaxAttempts: total create-agent attempts, re-provisioning included
//   - CompletionMaxRetries: default completion attempt budget
//   - CompletionRetryDelay: fixed wait between completion attempts
type Config struct {
	OpenAIAPIKey         string        `env:"OPENAI_API_KEY"`
	BaseURL              string        `env:"SWARMS_BASE_URL"               envDefault:"https://api.swarms.ai/v1"`
	Timeout              int           `env:"SWARMS_TIMEOUT"                envDefault:"60"`
	AgentMaxAttempts     int           `env:"SWARMS_AGENT_MAX_ATTEMPTS"     envDefault:"3"`
	CompletionMaxRetries int           `env:"SWARMS_COMPLETION_MAX_RETRIES" envDefault:"3"`
	CompletionRetryDelay time.Duration `env:"SWARMS_COMPLETION_RETRY_DELAY" envDefault:"5s"`
}
