package llm

import "github.com/coverline/engine/internal/agent/model"

// ConfigForStage returns the generation settings tuned per conversation
// stage. Early stages run warmer and shorter; collection runs cooler and
// structured; information runs longest for policy detail.
func ConfigForStage(stage model.ConversationStage) model.GenerationConfig {
	switch stage {
	case model.StageIntroduction:
		return model.GenerationConfig{Temperature: 0.8, MaxTokens: 150}
	case model.StageQualification:
		return model.GenerationConfig{Temperature: 0.6, MaxTokens: 200}
	case model.StageInformation:
		return model.GenerationConfig{Temperature: 0.7, MaxTokens: 600}
	case model.StagePersuasion:
		return model.GenerationConfig{Temperature: 0.7, MaxTokens: 400}
	case model.StageInformationCollection:
		return model.GenerationConfig{Temperature: 0.5, MaxTokens: 200}
	case model.StageObjectionHandling:
		return model.GenerationConfig{Temperature: 0.7, MaxTokens: 300}
	case model.StageClosing:
		return model.GenerationConfig{Temperature: 0.6, MaxTokens: 150}
	case model.StageEnded:
		return model.GenerationConfig{Temperature: 0.7, MaxTokens: 500}
	}
	return model.GenerationConfig{Temperature: 0.7, MaxTokens: 500}
}
