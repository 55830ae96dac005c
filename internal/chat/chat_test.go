package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actionbot/internal/action"
	"actionbot/internal/credential"
	"actionbot/internal/errs"
	"actionbot/internal/llm"
	"actionbot/internal/model"
	"actionbot/internal/store"
	"actionbot/internal/types"
)

type fakeProvider struct {
	reply    string
	err      error
	messages []llm.Message
	system   string
}

func (p *fakeProvider) Chat(_ context.Context, msgs []llm.Message, system string) (string, error) {
	p.messages = msgs
	p.system = system
	return p.reply, p.err
}

type fakeBuilder struct {
	p        *fakeProvider
	provider string
	key      string
}

func (b *fakeBuilder) New(_ context.Context, provider, _, apiKey string) (llm.Provider, error) {
	b.provider, b.key = provider, apiKey
	return b.p, nil
}

func quiet() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fixture struct {
	store   *store.MemoryStore
	builder *fakeBuilder
	svc     *Service
	bot     model.Chatbot
	form    action.Definition
	guide   action.Definition
}

func newFixture(t *testing.T, reply string) *fixture {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()
	bot := model.Chatbot{Name: "Clinic", Department: "Front desk", LLMProvider: "openai", LLMModel: "gpt-4o", IsActive: true, ShareToken: "t"}
	require.NoError(t, st.CreateChatbot(ctx, &bot))

	form := action.Definition{
		ChatbotID: bot.ID, Name: "Booking", Type: action.ShowForm,
		TriggerKeywords: []string{"appointment"},
		Config: action.FormConfig{Fields: []action.FormField{
			{Name: "name", Label: "Name", Type: action.FieldText, Required: true},
			{Name: "phone", Label: "Phone", Type: action.FieldText},
		}},
		IsActive: true,
	}
	require.NoError(t, st.CreateAction(ctx, &form))
	guide := action.Definition{
		ChatbotID: bot.ID, Name: "Directions", Type: action.ShowGuide,
		TriggerKeywords: []string{"directions"},
		Config:          action.DefaultsFor(action.ShowGuide),
		IsActive:        true,
	}
	require.NoError(t, st.CreateAction(ctx, &guide))

	prompts, err := LoadPrompts("")
	require.NoError(t, err)
	b := &fakeBuilder{p: &fakeProvider{reply: reply}}
	n := 0
	svc := NewService(st, b, prompts, Options{
		HistoryLimit: 4,
		EnvKeys:      map[string]string{"openai": "env-key"},
		NewID:        func() string { n++; return fmt.Sprintf("sid-%d", n) },
		Logger:       quiet(),
	})
	return &fixture{store: st, builder: b, svc: svc, bot: bot, form: form, guide: guide}
}

func TestSplitAction(t *testing.T) {
	tests := []struct {
		name, in, text, body string
	}{
		{"none", "  plain answer ", "plain answer", ""},
		{"trailing", "Sure.\n[ACTION]{\"a\":1}[/ACTION]", "Sure.", `{"a":1}`},
		{"middle", "Before [ACTION] {} [/ACTION] after", "Before\nafter", "{}"},
		{"unclosed", "Hi [ACTION]{", "Hi [ACTION]{", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, body := SplitAction(tt.in)
			assert.Equal(t, tt.text, text)
			assert.Equal(t, tt.body, body)
		})
	}
}

func TestResolveUsesStoredConfig(t *testing.T) {
	f := newFixture(t, "")
	defs, err := f.store.ListActions(context.Background(), f.bot.ID)
	require.NoError(t, err)

	body := fmt.Sprintf(`{"action_type":"SHOW_FORM","action_id":"%d","action_name":"x","data":{"prefill":{"name":"Ana","unknown":"z","phone":3}}}`, f.form.ID)
	inst := Resolve(body, defs)
	require.NotNil(t, inst)
	form := inst.Data.(action.FormConfig)
	assert.Len(t, form.Fields, 2)
	assert.Equal(t, map[string]string{"name": "Ana"}, form.Prefill)

	inst = Resolve(`{"action_type":"SHOW_FORM","action_name":"booking","data":{"phone":"555"}}`, defs)
	require.NotNil(t, inst)
	assert.Equal(t, map[string]string{"phone": "555"}, inst.Data.(action.FormConfig).Prefill)

	assert.Nil(t, Resolve(`{"action_id":999}`, defs))
	assert.Nil(t, Resolve(`not json`, defs))
}

func TestProcessPersistsAndAttachesAction(t *testing.T) {
	f := newFixture(t, "")
	f.builder.p.reply = fmt.Sprintf("Let me help.\n[ACTION]{\"action_type\":\"SHOW_GUIDE\",\"action_id\":%d,\"action_name\":\"Directions\",\"data\":{}}[/ACTION]", f.guide.ID)
	ctx := context.Background()

	resp, err := f.svc.Process(ctx, types.ChatRequest{ChatbotID: f.bot.ID, Message: "how do I get there?"})
	require.NoError(t, err)
	assert.Equal(t, "sid-1", resp.SessionID)
	assert.Equal(t, "Let me help.", resp.Response)
	require.NotNil(t, resp.Action)
	assert.Equal(t, f.guide.ID, resp.Action.ActionID)
	assert.Equal(t, action.DefaultsFor(action.ShowGuide), resp.Action.Data)

	assert.Equal(t, "openai", f.builder.provider)
	assert.Equal(t, "env-key", f.builder.key)
	assert.Contains(t, f.builder.p.system, "You are 'Clinic' chatbot")
	assert.Contains(t, f.builder.p.system, "Action 'Booking' (type: SHOW_FORM")

	h, err := f.store.History(ctx, f.bot.ID, "sid-1", 0)
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, model.RoleUser, h[0].Role)
	assert.Equal(t, "Let me help.", h[1].Content)
	require.NotNil(t, h[1].Instance())
}

func TestProcessKeywordFallbackAndHistoryWindow(t *testing.T) {
	f := newFixture(t, "Happy to book that.")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.svc.Process(ctx, types.ChatRequest{ChatbotID: f.bot.ID, SessionID: "s", Message: fmt.Sprintf("hello %d", i)})
		require.NoError(t, err)
	}
	resp, err := f.svc.Process(ctx, types.ChatRequest{ChatbotID: f.bot.ID, SessionID: "s", Message: "I need an APPOINTMENT"})
	require.NoError(t, err)
	require.NotNil(t, resp.Action)
	assert.Equal(t, f.form.ID, resp.Action.ActionID)

	// 4 history turns plus the new message
	assert.Len(t, f.builder.p.messages, 5)
	assert.Equal(t, "I need an APPOINTMENT", f.builder.p.messages[4].Content)
}

func TestProcessInactiveActionNotMatched(t *testing.T) {
	f := newFixture(t, "ok")
	ctx := context.Background()
	f.form.IsActive = false
	require.NoError(t, f.store.UpdateAction(ctx, &f.form))

	resp, err := f.svc.Process(ctx, types.ChatRequest{ChatbotID: f.bot.ID, Message: "appointment please"})
	require.NoError(t, err)
	assert.Nil(t, resp.Action)
	assert.NotContains(t, f.builder.p.system, "Booking")
}

func TestProcessCredentialTiers(t *testing.T) {
	f := newFixture(t, "ok")
	ctx := context.Background()
	require.NoError(t, f.store.SetAPIKey(ctx, "openai", "global-key"))
	_, err := f.svc.Process(ctx, types.ChatRequest{ChatbotID: f.bot.ID, Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "global-key", f.builder.key)

	f.bot.APIKey = "bot-key"
	require.NoError(t, f.store.UpdateChatbot(ctx, &f.bot))
	_, err = f.svc.Process(ctx, types.ChatRequest{ChatbotID: f.bot.ID, Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "bot-key", f.builder.key)

	key, tier := credential.Resolve("bot-key", "global-key", "env-key")
	assert.Equal(t, "bot-key", key)
	assert.Equal(t, credential.TierChatbot, tier)
}

func TestProcessErrors(t *testing.T) {
	f := newFixture(t, "ok")
	ctx := context.Background()

	_, err := f.svc.Process(ctx, types.ChatRequest{ChatbotID: f.bot.ID, Message: "  "})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.svc.Process(ctx, types.ChatRequest{ChatbotID: 999, Message: "hi"})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	f.builder.p.err = fmt.Errorf("%w: boom", errs.ErrProvider)
	_, err = f.svc.Process(ctx, types.ChatRequest{ChatbotID: f.bot.ID, SessionID: "s", Message: "hi"})
	assert.True(t, errors.Is(err, errs.ErrProvider))
	h, err := f.store.History(ctx, f.bot.ID, "s", 0)
	require.NoError(t, err)
	assert.Empty(t, h)

	f.bot.IsActive = false
	require.NoError(t, f.store.UpdateChatbot(ctx, &f.bot))
	_, err = f.svc.Process(ctx, types.ChatRequest{ChatbotID: f.bot.ID, Message: "hi"})
	assert.ErrorIs(t, err, errs.ErrForbidden)
}
