package llm

import (
	"testing"

	"github.com/coverline/engine/internal/agent/model"
	"github.com/stretchr/testify/assert"
)

func TestConfigForStage(t *testing.T) {
	cases := []struct {
		stage     model.ConversationStage
		temp      float32
		maxTokens int
	}{
		{model.StageIntroduction, 0.8, 150},
		{model.StageQualification, 0.6, 200},
		{model.StageInformation, 0.7, 600},
		{model.StagePersuasion, 0.7, 400},
		{model.StageInformationCollection, 0.5, 200},
		{model.StageObjectionHandling, 0.7, 300},
		{model.StageClosing, 0.6, 150},
		{model.StageEnded, 0.7, 500},
	}
	for _, tc := range cases {
		cfg := ConfigForStage(tc.stage)
		assert.Equal(t, tc.temp, cfg.Temperature, "stage %s", tc.stage)
		assert.Equal(t, tc.maxTokens, cfg.MaxTokens, "stage %s", tc.stage)
	}
}

func TestParseEntityJSON(t *testing.T) {
	got := parseEntityJSON(`{"name": "Jane Doe", "age": 34, "email": null}`)
	assert.Equal(t, "Jane Doe", got["name"])
	assert.Equal(t, "34", got["age"])
	assert.NotContains(t, got, "email")
}

func TestParseEntityJSON_CodeFence(t *testing.T) {
	got := parseEntityJSON("```json\n{\"phone\": \"+15550001234\"}\n```")
	assert.Equal(t, "+15550001234", got["phone"])
}

func TestParseEntityJSON_SurroundingProse(t *testing.T) {
	got := parseEntityJSON(`Here is the result: {"name": "Bob"} hope that helps`)
	assert.Equal(t, "Bob", got["name"])
}

func TestParseEntityJSON_Garbage(t *testing.T) {
	assert.Empty(t, parseEntityJSON("no json here"))
	assert.Empty(t, parseEntityJSON(""))
	assert.Empty(t, parseEntityJSON("{broken"))
}
