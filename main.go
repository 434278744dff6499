package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/coverline/engine/internal/agent/llm"
	"github.com/coverline/engine/internal/agent/model"
	"github.com/coverline/engine/internal/agent/orchestrator"
	"github.com/coverline/engine/internal/agent/retry"
	"github.com/coverline/engine/internal/agent/session"
	"github.com/coverline/engine/internal/core"
	"github.com/coverline/engine/internal/store"
	logx "github.com/coverline/engine/pkg/logger"
	pkgredis "github.com/coverline/engine/pkg/redis"
)

// AppConfig defines all configurable parameters for the sales agent demo,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"`

	// Infrastructure
	Redis      pkgredis.Config
	SQLitePath string `envconfig:"SQLITE_PATH" default:"coverline.db"`

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Engine configs
	Session   model.SessionConfig
	ChatModel model.ChatModelConfig
	Retry     model.RetryConfig
	Prompt    model.PromptConfig
	Context   model.ContextConfig
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(envCfg.Environment)})

	rdb, err := envCfg.Redis.New()
	if err != nil {
		log.Fatalf("Failed to initialise Redis client: %v", err)
	}
	defer rdb.Close()

	db, err := store.Open(envCfg.SQLitePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if err := store.SeedPolicies(db); err != nil {
		log.Fatalf("Failed to seed policy catalog: %v", err)
	}
	repo := store.New(db)
	conversationLog := session.NewCachedConversationLog(rdb, repo, envCfg.Session.TTL, envCfg.Context.MaxMessages)

	provider, err := llm.NewGeminiProvider(ctx, llm.GeminiConfig{
		APIKey:  envCfg.APIKey,
		BaseURL: envCfg.BaseURL,
		Model:   envCfg.ChatModel,
	})
	if err != nil {
		log.Fatalf("Failed to initialise Gemini provider: %v", err)
	}

	engine := orchestrator.NewEngine(
		provider,
		session.NewRedisSessionStore(rdb, envCfg.Session.TTL),
		conversationLog,
		repo,
		repo,
		orchestrator.Config{
			Retry: retry.Policy{
				MaxAttempts:     envCfg.Retry.MaxAttempts,
				InitialDelay:    envCfg.Retry.InitialDelay,
				MaxDelay:        envCfg.Retry.MaxDelay,
				ExponentialBase: envCfg.Retry.ExponentialBase,
				Jitter:          envCfg.Retry.Jitter,
			},
			Context: envCfg.Context,
			Prompt:  envCfg.Prompt,
		},
	)

	start, err := engine.StartConversation(ctx)
	if err != nil {
		log.Fatalf("Failed to start conversation: %v", err)
	}
	fmt.Printf("Agent: %s\n", start.Message)

	testTurns := []struct {
		description string
		message     string
	}{
		{
			description: "Greeting with a stated need",
			message:     "Hi, I'm 34 years old and I want to protect my family",
		},
		{
			description: "Pricing question",
			message:     "How much would a term life policy cost per month?",
		},
		{
			description: "Cost objection",
			message:     "The premiums sound too expensive for my budget",
		},
		{
			description: "Commitment",
			message:     "Alright, I want to sign up for the starter policy",
		},
	}

	for i, turn := range testTurns {
		fmt.Printf("\nTurn %d: %s\n", i+1, turn.description)
		fmt.Printf("Customer: %q\n", turn.message)

		reply, err := engine.ProcessMessage(ctx, start.SessionID, turn.message)
		if err != nil {
			log.Fatalf("Failed to process turn %d: %v", i+1, err)
		}

		fmt.Printf("Agent [%s, interest=%s]: %s\n", reply.Stage, reply.InterestLevel, reply.Message)

		// slight delay between turns for readability
		time.Sleep(500 * time.Millisecond)
	}

	result, err := engine.EndConversation(ctx, start.SessionID, "demo_complete")
	if err != nil {
		log.Fatalf("Failed to end conversation: %v", err)
	}
	fmt.Printf("\nSummary: %s\n", result.Summary)
	fmt.Printf("Duration: %ds\n", result.DurationSeconds)
}
