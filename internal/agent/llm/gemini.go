// Package llm adapts the Gemini chat model to the engine's provider
// interface: free-form generation plus the two structured utility calls
// (intent classification, entity extraction).
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/coverline/engine/internal/agent/model"
	errx "github.com/coverline/engine/internal/core/error"
	logx "github.com/coverline/engine/pkg/logger"
)

type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   model.ChatModelConfig
}

type GeminiProvider struct {
	chat            *gemini.ChatModel
	modelName       string
	generateTimeout time.Duration
	utilityTimeout  time.Duration
}

func NewGeminiProvider(ctx context.Context, config GeminiConfig) (*GeminiProvider, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	chat, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client: client,
		Model:  config.Model.Model,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating chat model")
		return nil, fmt.Errorf("error creating chat model: %w", err)
	}

	return &GeminiProvider{
		chat:            chat,
		modelName:       config.Model.Model,
		generateTimeout: config.Model.GenerateTimeout,
		utilityTimeout:  config.Model.UtilityTimeout,
	}, nil
}

func (p *GeminiProvider) GenerateResponse(ctx context.Context, messages []*schema.Message, cfg model.GenerationConfig) (*model.GenerationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.generateTimeout)
	defer cancel()

	msg, err := p.chat.Generate(ctx, messages,
		einomodel.WithTemperature(cfg.Temperature),
		einomodel.WithMaxTokens(cfg.MaxTokens),
	)
	if err != nil {
		return nil, errx.LLMService(fmt.Errorf("generate: %w", err))
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		// Empty content is a provider failure, never a valid reply.
		return nil, errx.LLMService(fmt.Errorf("generate: empty response from %s", p.modelName))
	}

	tokens := 0
	if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		tokens = msg.ResponseMeta.Usage.TotalTokens
	}
	return &model.GenerationResult{
		Content:    msg.Content,
		TokensUsed: tokens,
	}, nil
}

func (p *GeminiProvider) ClassifyIntent(ctx context.Context, message string) (model.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, p.utilityTimeout)
	defer cancel()

	prompt := fmt.Sprintf(`Classify the intent of this message: %q

Possible intents: greeting, question, objection, interest, exit, information_request, policy_comparison

Respond with only the intent name.`, message)

	msg, err := p.chat.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)},
		einomodel.WithTemperature(0.1),
		einomodel.WithMaxTokens(10),
	)
	if err != nil {
		return model.IntentUnknown, errx.LLMService(fmt.Errorf("classify intent: %w", err))
	}
	return model.ParseIntent(msg.Content), nil
}

func (p *GeminiProvider) ExtractEntities(ctx context.Context, message string, entityTypes []string) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.utilityTimeout)
	defer cancel()

	prompt := fmt.Sprintf(`Extract the following from this message: %q

Extract: %s

Return JSON format with extracted values or null if not found.`, message, strings.Join(entityTypes, ", "))

	msg, err := p.chat.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)},
		einomodel.WithTemperature(0.1),
		einomodel.WithMaxTokens(200),
	)
	if err != nil {
		return nil, errx.LLMService(fmt.Errorf("extract entities: %w", err))
	}
	return parseEntityJSON(msg.Content), nil
}

// parseEntityJSON tolerates fenced, padded, or loosely typed model output.
// Unparseable output yields an empty map so the regex fallback takes over.
func parseEntityJSON(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return map[string]string{}
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &decoded); err != nil {
		logx.Debug().Err(err).Msg("entity extraction output was not valid JSON")
		return map[string]string{}
	}

	entities := make(map[string]string, len(decoded))
	for key, value := range decoded {
		switch v := value.(type) {
		case string:
			if v != "" && !strings.EqualFold(v, "null") {
				entities[key] = v
			}
		case float64:
			entities[key] = strings.TrimSuffix(fmt.Sprintf("%v", v), ".0")
		}
	}
	return entities
}

var _ model.Provider = (*GeminiProvider)(nil)
