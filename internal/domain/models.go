package domain

// NoResponseSentinel is the response text the service returns when the agent produced no answer.
const NoResponseSentinel = "None"

// User is the result of provisioning an account.
type User struct {
	Username string `json:"username,omitempty"`
	UserID   string `json:"user_id"`
	APIKey   string `json:"api_key"`
}

// APIKey is a credential minted for an existing user.
type APIKey struct {
	Key    string                 `json:"key"`
	Name   string                 `json:"name,omitempty"`
	Fields map[string]interface{} `json:"-"`
}

// AgentSpec describes the agent to register.
type AgentSpec struct {
	Name         string
	SystemPrompt string
	ModelName    string
	Temperature  float64
}

// Agent is the descriptor returned after registering an agent.
type Agent struct {
	ID     string                 `json:"agent_id"`
	Name   string                 `json:"agent_name,omitempty"`
	Fields map[string]interface{} `json:"-"`
}

// CompletionRequest asks an agent to answer a prompt.
type CompletionRequest struct {
	// APIKey is the per-call credential. It may differ from the held one.
	APIKey  string
	AgentID string
	Prompt  string
	// MaxRetries bounds the attempts; zero selects the backend default.
	MaxRetries int
}

// CompletionResult is passed through from the service without validation.
type CompletionResult struct {
	Response       string                 `json:"response"`
	Metadata       map[string]interface{} `json:"metadata"`
	Timestamp      interface{}            `json:"timestamp"`
	ProcessingTime interface{}            `json:"processing_time"`
	TokenUsage     map[string]interface{} `json:"token_usage"`
	Detail         string                 `json:"detail,omitempty"`
}

// IsEmpty reports whether the service signalled that no answer was produced.
func (r *CompletionResult) IsEmpty() bool {
	return r.Response == NoResponseSentinel
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost,omitempty"`
}

// UsageFromTokenMap reads token counts from a service token_usage map.
// Both input/output and prompt/completion key spellings are accepted.
func UsageFromTokenMap(m map[string]interface{}) Usage {
	usage := Usage{
		PromptTokens:     firstInt(m, "input_tokens", "prompt_tokens"),
		CompletionTokens: firstInt(m, "output_tokens", "completion_tokens"),
		TotalTokens:      firstInt(m, "total_tokens"),
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	return usage
}

func firstInt(m map[string]interface{}, keys ...string) int {
	for _, key := range keys {
		switch v := m[key].(type) {
		case float64:
			return int(v)
		case int:
			return v
		case int64:
			return int(v)
		}
	}
	return 0
}
