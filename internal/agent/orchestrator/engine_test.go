package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coverline/engine/internal/agent/fallback"
	"github.com/coverline/engine/internal/agent/model"
	"github.com/coverline/engine/internal/agent/retry"
	errx "github.com/coverline/engine/internal/core/error"
)

type testHarness struct {
	engine   *Engine
	provider *scriptedProvider
	sessions *memSessionStore
	log      *memConversationLog
	leads    *memLeadSink
	catalog  *memCatalog
}

func newTestHarness(provider *scriptedProvider) *testHarness {
	h := &testHarness{
		provider: provider,
		sessions: newMemSessionStore(),
		log:      newMemConversationLog(),
		leads:    &memLeadSink{},
		catalog: &memCatalog{policies: []model.Policy{
			{ID: 1, Name: "Starter Coverage", CoverageAmount: 100000, MonthlyPremium: 12.25},
			{ID: 2, Name: "Term Shield 20", CoverageAmount: 500000, MonthlyPremium: 35.50},
			{ID: 3, Name: "Family Guard Plus", CoverageAmount: 750000, MonthlyPremium: 55.00},
		}},
	}
	h.engine = NewEngine(provider, h.sessions, h.log, h.catalog, h.leads, Config{
		Retry:  retry.Policy{MaxAttempts: 1},
		Prompt: model.PromptConfig{CompanyName: "Coverline Insurance", AgentName: "Alex"},
	})
	return h
}

func plainGenerator(content string) func([]*schema.Message, model.GenerationConfig) (*model.GenerationResult, error) {
	return func([]*schema.Message, model.GenerationConfig) (*model.GenerationResult, error) {
		return &model.GenerationResult{Content: content}, nil
	}
}

func TestStartConversation(t *testing.T) {
	h := newTestHarness(&scriptedProvider{})

	reply, err := h.engine.StartConversation(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, reply.SessionID)
	assert.NotContains(t, reply.SessionID, "-")
	assert.Contains(t, reply.Message, "Alex")
	assert.Equal(t, model.StageIntroduction, reply.Stage)
	assert.Equal(t, model.InterestNone, reply.InterestLevel)

	state, err := h.sessions.Get(context.Background(), reply.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, state.MessageCount)
	assert.Equal(t, reply.Message, h.log.lastAssistant(reply.SessionID))
}

func TestProcessMessage_UnknownSession(t *testing.T) {
	h := newTestHarness(&scriptedProvider{})

	_, err := h.engine.ProcessMessage(context.Background(), "nope", "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errx.ErrSessionNotFound))
}

func TestProcessMessage_EmptyMessage(t *testing.T) {
	h := newTestHarness(&scriptedProvider{})
	start, err := h.engine.StartConversation(context.Background())
	require.NoError(t, err)

	_, err = h.engine.ProcessMessage(context.Background(), start.SessionID, "   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errx.ErrValidation))
}

func TestProcessMessage_ProfileAdvancesStage(t *testing.T) {
	provider := &scriptedProvider{
		generate: plainGenerator("Family protection is exactly what term coverage is designed for. Let me walk you through our policies."),
		classify: func(string) (model.Intent, error) { return model.IntentInterest, nil },
		extract: func(string, []string) (map[string]string, error) {
			return map[string]string{"age": "34", "purpose": "protect my family"}, nil
		},
	}
	h := newTestHarness(provider)
	start, err := h.engine.StartConversation(context.Background())
	require.NoError(t, err)

	reply, err := h.engine.ProcessMessage(context.Background(), start.SessionID, "I'm 34 years old and I want to protect my family")
	require.NoError(t, err)

	assert.Equal(t, model.StageInformation, reply.Stage)
	assert.Equal(t, "interest", reply.Metadata["intent"])

	state, err := h.sessions.Get(context.Background(), start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 34, state.Profile.Age)
	assert.Equal(t, "protect my family", state.Profile.Purpose)
	assert.Equal(t, model.StageInformation, state.Stage)
	assert.Equal(t, 3, state.MessageCount)
}

func TestProcessMessage_ExitPhrase(t *testing.T) {
	h := newTestHarness(&scriptedProvider{})
	start, err := h.engine.StartConversation(context.Background())
	require.NoError(t, err)

	reply, err := h.engine.ProcessMessage(context.Background(), start.SessionID, "No thanks, not interested")
	require.NoError(t, err)

	assert.Equal(t, model.StageEnded, reply.Stage)
	assert.Contains(t, reply.Message, "Thank you for your time")

	state, err := h.sessions.Get(context.Background(), start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.StageEnded, state.Stage)
}

func TestProcessMessage_GenerationDownServesFallback(t *testing.T) {
	h := newTestHarness(&scriptedProvider{})
	start, err := h.engine.StartConversation(context.Background())
	require.NoError(t, err)

	reply, err := h.engine.ProcessMessage(context.Background(), start.SessionID, "What coverage plans do you offer today?")
	require.NoError(t, err)

	assert.NotEmpty(t, reply.Message)
	assert.Equal(t, model.StageQualification, reply.Stage)
	assert.Equal(t, "question", reply.Metadata["intent"])
	assert.Positive(t, h.provider.generateCalls)
}

func TestProcessMessage_CostObjection(t *testing.T) {
	provider := &scriptedProvider{
		classify: func(string) (model.Intent, error) { return model.IntentObjection, nil },
	}
	h := newTestHarness(provider)
	start, err := h.engine.StartConversation(context.Background())
	require.NoError(t, err)

	reply, err := h.engine.ProcessMessage(context.Background(), start.SessionID, "The premiums are too expensive for me")
	require.NoError(t, err)

	assert.Equal(t, model.StageObjectionHandling, reply.Stage)
	assert.Equal(t, "cost", reply.Metadata["objection_type"])
	assert.Contains(t, reply.Message, "cost is important")
	assert.Zero(t, h.provider.generateCalls)
}

func TestProcessMessage_AmbiguousWithoutContext(t *testing.T) {
	h := newTestHarness(&scriptedProvider{})
	start, err := h.engine.StartConversation(context.Background())
	require.NoError(t, err)

	reply, err := h.engine.ProcessMessage(context.Background(), start.SessionID, "tell me more about that")
	require.NoError(t, err)

	assert.Equal(t, true, reply.Metadata["clarification"])
	assert.Equal(t, model.StageIntroduction, reply.Stage)
	assert.Contains(t, reply.Message, "clarify")
}

// walkToConfirmation drives a session through the full capture sequence up to
// the yes/no summary.
func walkToConfirmation(t *testing.T, h *testHarness) string {
	t.Helper()
	ctx := context.Background()

	start, err := h.engine.StartConversation(ctx)
	require.NoError(t, err)
	sessionID := start.SessionID

	state, err := h.sessions.Get(ctx, sessionID)
	require.NoError(t, err)
	state.InterestLevel = model.InterestMedium
	require.NoError(t, h.sessions.Save(ctx, state))

	reply, err := h.engine.ProcessMessage(ctx, sessionID, "I would like to sign up for a policy")
	require.NoError(t, err)
	require.Equal(t, model.StageInformationCollection, reply.Stage)
	require.Contains(t, reply.Message, "full name")

	reply, err = h.engine.ProcessMessage(ctx, sessionID, "My name is Jane Doe")
	require.NoError(t, err)
	require.Contains(t, reply.Message, "phone number")

	reply, err = h.engine.ProcessMessage(ctx, sessionID, "555-000-1234")
	require.NoError(t, err)
	require.Contains(t, reply.Message, "national ID")

	reply, err = h.engine.ProcessMessage(ctx, sessionID, "AB12345678")
	require.NoError(t, err)
	require.Contains(t, reply.Message, "address")

	reply, err = h.engine.ProcessMessage(ctx, sessionID, "123 Maple Street, Springfield")
	require.NoError(t, err)
	require.Contains(t, reply.Message, "policy")

	reply, err = h.engine.ProcessMessage(ctx, sessionID, "Term Shield 20")
	require.NoError(t, err)
	require.Contains(t, reply.Message, "Is everything correct?")
	require.Contains(t, reply.Message, "Jane Doe")
	require.Contains(t, reply.Message, "+5550001234")

	return sessionID
}

func TestCollection_FullWalkAndConfirm(t *testing.T) {
	provider := &scriptedProvider{
		generate: plainGenerator("Happy to help with anything else about your coverage."),
		classify: func(string) (model.Intent, error) { return model.IntentUnknown, nil },
	}
	h := newTestHarness(provider)
	ctx := context.Background()

	sessionID := walkToConfirmation(t, h)

	reply, err := h.engine.ProcessMessage(ctx, sessionID, "yes")
	require.NoError(t, err)
	assert.Equal(t, model.StageClosing, reply.Stage)
	assert.Equal(t, model.InterestHigh, reply.InterestLevel)
	assert.Contains(t, reply.Message, "Jane Doe")
	assert.NotNil(t, reply.Metadata["lead_id"])

	require.Len(t, h.leads.leads, 1)
	assert.Equal(t, "Jane Doe", h.leads.leads[0].Name)
	assert.Equal(t, "+5550001234", h.leads.leads[0].Phone)
	assert.Equal(t, "AB12345678", h.leads.leads[0].NID)
	assert.Equal(t, "Term Shield 20", h.leads.leads[0].InterestedPolicy)
	assert.Equal(t, sessionID, h.leads.leads[0].SessionID)

	// A follow-up turn must not re-enter collection.
	reply, err = h.engine.ProcessMessage(ctx, sessionID, "Thank you so much")
	require.NoError(t, err)
	assert.Equal(t, model.StageClosing, reply.Stage)
	assert.Len(t, h.leads.leads, 1)
}

func TestCollection_CorrectionThenConfirm(t *testing.T) {
	provider := &scriptedProvider{
		classify: func(string) (model.Intent, error) { return model.IntentUnknown, nil },
	}
	h := newTestHarness(provider)
	ctx := context.Background()

	sessionID := walkToConfirmation(t, h)

	reply, err := h.engine.ProcessMessage(ctx, sessionID, "no, the phone number is wrong")
	require.NoError(t, err)
	assert.Equal(t, "phone_number", reply.Metadata["cleared_field"])
	assert.Contains(t, reply.Message, "phone number")

	reply, err = h.engine.ProcessMessage(ctx, sessionID, "555-000-9999 is the right number")
	require.NoError(t, err)
	assert.Contains(t, reply.Message, "Is everything correct?")
	assert.Contains(t, reply.Message, "+5550009999")

	reply, err = h.engine.ProcessMessage(ctx, sessionID, "yes")
	require.NoError(t, err)
	assert.Equal(t, model.StageClosing, reply.Stage)
	require.Len(t, h.leads.leads, 1)
	assert.Equal(t, "+5550009999", h.leads.leads[0].Phone)
}

func TestCollection_SaveFailurePreservesData(t *testing.T) {
	provider := &scriptedProvider{
		classify: func(string) (model.Intent, error) { return model.IntentUnknown, nil },
	}
	h := newTestHarness(provider)
	ctx := context.Background()

	sessionID := walkToConfirmation(t, h)
	h.leads.err = errx.Persistence(errors.New("database unavailable"))

	reply, err := h.engine.ProcessMessage(ctx, sessionID, "yes")
	require.NoError(t, err)
	assert.Equal(t, fallback.SaveErrorMessage(), reply.Message)
	assert.Equal(t, true, reply.Metadata["save_failed"])

	state, err := h.sessions.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.True(t, state.AwaitingConfirmation)
	assert.Equal(t, "Jane Doe", state.Collected.FullName)

	// The next confirmation retries the save without re-collecting.
	h.leads.err = nil
	reply, err = h.engine.ProcessMessage(ctx, sessionID, "yes")
	require.NoError(t, err)
	assert.Equal(t, model.StageClosing, reply.Stage)
	require.Len(t, h.leads.leads, 1)
}

func TestCollection_DuplicateLeadReported(t *testing.T) {
	provider := &scriptedProvider{
		classify: func(string) (model.Intent, error) { return model.IntentUnknown, nil },
	}
	h := newTestHarness(provider)
	h.leads.leads = append(h.leads.leads, model.NewLead{Name: "Jane Doe", Phone: "+5550001234"})
	ctx := context.Background()

	sessionID := walkToConfirmation(t, h)

	reply, err := h.engine.ProcessMessage(ctx, sessionID, "yes")
	require.NoError(t, err)
	assert.Equal(t, model.StageClosing, reply.Stage)
	assert.Equal(t, true, reply.Metadata["duplicate"])
	assert.Contains(t, reply.Message, "already have your information")
	assert.Len(t, h.leads.leads, 1)

	state, err := h.sessions.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.False(t, state.AwaitingConfirmation)
}

func TestCollection_ValidationFailureReprompts(t *testing.T) {
	provider := &scriptedProvider{
		classify: func(string) (model.Intent, error) { return model.IntentUnknown, nil },
	}
	h := newTestHarness(provider)
	ctx := context.Background()

	sessionID := walkToConfirmation(t, h)
	h.leads.err = errx.Validation(nil, "lead validation failed")

	reply, err := h.engine.ProcessMessage(ctx, sessionID, "yes")
	require.NoError(t, err)
	assert.Contains(t, reply.Message, "isn't valid")
	assert.Equal(t, model.StageInformationCollection, reply.Stage)

	state, err := h.sessions.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.False(t, state.AwaitingConfirmation)
	assert.NotEmpty(t, state.PendingField)
}

func TestCollection_UnclearConfirmationReasks(t *testing.T) {
	provider := &scriptedProvider{
		classify: func(string) (model.Intent, error) { return model.IntentUnknown, nil },
	}
	h := newTestHarness(provider)
	ctx := context.Background()

	sessionID := walkToConfirmation(t, h)

	reply, err := h.engine.ProcessMessage(ctx, sessionID, "hmm maybe")
	require.NoError(t, err)
	assert.Contains(t, reply.Message, "didn't catch that")
	assert.Contains(t, reply.Message, "Is everything correct?")

	reply, err = h.engine.ProcessMessage(ctx, sessionID, "hmm maybe")
	require.NoError(t, err)
	assert.Contains(t, reply.Message, `Please reply "yes" to confirm`)
	assert.Empty(t, h.leads.leads)
}

func TestProcessMessage_RecreatesExpiredSession(t *testing.T) {
	provider := &scriptedProvider{
		generate: plainGenerator("Welcome back! Let's pick up where we left off with your coverage questions."),
		classify: func(string) (model.Intent, error) { return model.IntentUnknown, nil },
	}
	h := newTestHarness(provider)
	ctx := context.Background()

	start, err := h.engine.StartConversation(ctx)
	require.NoError(t, err)
	require.NoError(t, h.sessions.Delete(ctx, start.SessionID))

	reply, err := h.engine.ProcessMessage(ctx, start.SessionID, "I still have questions about coverage")
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Message)

	state, err := h.sessions.Get(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, start.SessionID, state.SessionID)
}

func TestEndConversation(t *testing.T) {
	h := newTestHarness(&scriptedProvider{})
	ctx := context.Background()

	start, err := h.engine.StartConversation(ctx)
	require.NoError(t, err)

	result, err := h.engine.EndConversation(ctx, start.SessionID, "user_requested")
	require.NoError(t, err)
	assert.Equal(t, "Conversation completed.", result.Summary)
	assert.GreaterOrEqual(t, result.DurationSeconds, 0)

	state, err := h.sessions.Get(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.StageEnded, state.Stage)
}

func TestEndConversation_UnknownSession(t *testing.T) {
	h := newTestHarness(&scriptedProvider{})

	_, err := h.engine.EndConversation(context.Background(), "missing", "cleanup")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errx.ErrSessionNotFound))
}

func TestGenerateSummary_UsesProvider(t *testing.T) {
	provider := &scriptedProvider{
		generate: plainGenerator("Customer asked about term coverage and showed medium interest; no lead captured."),
	}
	h := newTestHarness(provider)
	ctx := context.Background()

	start, err := h.engine.StartConversation(ctx)
	require.NoError(t, err)

	summary := h.engine.GenerateSummary(ctx, start.SessionID)
	assert.Contains(t, summary, "term coverage")
}

func TestKeywordIntent(t *testing.T) {
	tests := []struct {
		message string
		want    model.Intent
	}{
		{"hello there", model.IntentGreeting},
		{"not interested, stop calling", model.IntentExit},
		{"this is too expensive", model.IntentObjection},
		{"I want to sign up", model.IntentInterest},
		{"how does underwriting work?", model.IntentQuestion},
		{"lorem ipsum", model.IntentUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, keywordIntent(tt.message), "message %q", tt.message)
	}
}

func TestClassifyObjection(t *testing.T) {
	tests := []struct {
		message string
		want    model.ObjectionType
	}{
		{"way too expensive for my budget", model.ObjectionCost},
		{"I don't need insurance", model.ObjectionNecessity},
		{"this is all very confusing", model.ObjectionComplexity},
		{"how do I know this isn't a scam", model.ObjectionTrust},
		{"let me think about it", model.ObjectionTiming},
		{"I found a better deal elsewhere", model.ObjectionComparison},
		{"the weather is nice", model.ObjectionUnrecognized},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyObjection(tt.message), "message %q", tt.message)
	}
}

func TestDetermineStage(t *testing.T) {
	ended := model.NewSessionState("s1")
	ended.Stage = model.StageEnded
	assert.Equal(t, model.StageEnded, determineStage(ended, model.IntentInterest))

	interested := model.NewSessionState("s2")
	interested.InterestLevel = model.InterestMedium
	assert.Equal(t, model.StageInformationCollection, determineStage(interested, model.IntentUnknown))

	// Complete capture data releases the collection funnel.
	interested.Collected = model.CollectedData{
		FullName: "Jane Doe", PhoneNumber: "+5550001234", NID: "AB12345678",
		Address: "123 Maple Street", PolicyOfInterest: "Term Shield 20",
	}
	interested.Stage = model.StageClosing
	assert.Equal(t, model.StageClosing, determineStage(interested, model.IntentUnknown))

	objecting := model.NewSessionState("s3")
	objecting.Stage = model.StagePersuasion
	assert.Equal(t, model.StageObjectionHandling, determineStage(objecting, model.IntentObjection))

	fresh := model.NewSessionState("s4")
	assert.Equal(t, model.StageQualification, determineStage(fresh, model.IntentGreeting))

	fresh.Profile.Age = 40
	fresh.Profile.Purpose = "family protection"
	assert.Equal(t, model.StageInformation, determineStage(fresh, model.IntentGreeting))
}

func TestScoreInterest(t *testing.T) {
	state := model.NewSessionState("s1")
	assert.Equal(t, model.InterestNone, scoreInterest(state))

	state.Collected.FullName = "Jane Doe"
	assert.Equal(t, model.InterestLow, scoreInterest(state))

	state.Collected.PolicyOfInterest = "Term Shield 20"
	assert.Equal(t, model.InterestHigh, scoreInterest(state))

	// An explicit level is never downgraded by the heuristic.
	explicit := model.NewSessionState("s2")
	explicit.InterestLevel = model.InterestHigh
	assert.Equal(t, model.InterestHigh, scoreInterest(explicit))
}
