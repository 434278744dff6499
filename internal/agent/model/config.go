package model

import "time"

// ================ Config ================

type SessionConfig struct {
	TTL time.Duration `envconfig:"SESSION_TTL" default:"30m"`
}

type ChatModelConfig struct {
	Model           string        `envconfig:"CHAT_MODEL" default:"gemini-2.5-flash"`
	GenerateTimeout time.Duration `envconfig:"CHAT_GENERATE_TIMEOUT" default:"120s"`
	UtilityTimeout  time.Duration `envconfig:"CHAT_UTILITY_TIMEOUT" default:"60s"`
}

type RetryConfig struct {
	MaxAttempts     int           `envconfig:"MAX_ATTEMPTS" default:"3"`
	InitialDelay    time.Duration `envconfig:"INITIAL_DELAY" default:"1s"`
	MaxDelay        time.Duration `envconfig:"MAX_DELAY" default:"10s"`
	ExponentialBase float64       `envconfig:"EXPONENTIAL_BASE" default:"2.0"`
	Jitter          bool          `envconfig:"JITTER" default:"true"`
}

type PromptConfig struct {
	CompanyName string `envconfig:"PROMPT_COMPANY_NAME" default:"Coverline Insurance"`
	AgentName   string `envconfig:"PROMPT_AGENT_NAME" default:"Alex"`
}

type ContextConfig struct {
	MaxMessages int `envconfig:"CONTEXT_MAX_MESSAGES" default:"50"`
	MaxTokens   int `envconfig:"CONTEXT_MAX_TOKENS" default:"8000"`
	KeepRecent  int `envconfig:"CONTEXT_KEEP_RECENT" default:"30"`
}
