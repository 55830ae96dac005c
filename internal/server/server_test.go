package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actionbot/internal/action"
	"actionbot/internal/client"
	"actionbot/internal/config"
	"actionbot/internal/errs"
	"actionbot/internal/llm"
	"actionbot/internal/logging"
	"actionbot/internal/store"
	"actionbot/internal/types"
)

type stubProvider struct{ reply string }

func (p stubProvider) Chat(context.Context, []llm.Message, string) (string, error) {
	return p.reply, nil
}

type stubBuilder struct {
	reply string
	err   error
	keys  []string
}

func (b *stubBuilder) New(_ context.Context, _, _, key string) (llm.Provider, error) {
	b.keys = append(b.keys, key)
	if b.err != nil {
		return nil, b.err
	}
	return stubProvider{reply: b.reply}, nil
}

type harness struct {
	srv     *httptest.Server
	api     *client.Client
	builder *stubBuilder
	store   *store.MemoryStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := store.NewMemoryStore()
	b := &stubBuilder{reply: "Hello!"}
	cfg := config.Config{
		AllowedOrigins:   []string{"*"},
		ChatHistoryLimit: 20,
		ChatTimeout:      5 * time.Second,
	}
	s, err := NewServer(cfg, Deps{Store: st, LLM: b, Logger: logging.Discard()})
	require.NoError(t, err)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return &harness{srv: srv, api: client.New(srv.URL+"/api", "", 5*time.Second), builder: b, store: st}
}

func strp(s string) *string { return &s }

func (h *harness) chatbot(t *testing.T) types.Chatbot {
	t.Helper()
	bot, err := h.api.CreateChatbot(context.Background(), types.ChatbotRequest{Name: strp("Clinic")})
	require.NoError(t, err)
	return bot
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	got, err := h.api.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.Health{Status: "ok", Database: "ok"}, got)
}

func TestChatbotLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.api.CreateChatbot(ctx, types.ChatbotRequest{Name: strp("  ")})
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = h.api.CreateChatbot(ctx, types.ChatbotRequest{Name: strp("x"), LLMProvider: strp("nope")})
	assert.ErrorIs(t, err, errs.ErrValidation)

	bot, err := h.api.CreateChatbot(ctx, types.ChatbotRequest{Name: strp("Clinic"), APIKey: strp("sk-ant-abcdefghijklmnop")})
	require.NoError(t, err)
	assert.Equal(t, "claude", bot.LLMProvider)
	assert.Equal(t, "claude-sonnet-4-5-20250929", bot.LLMModel)
	assert.True(t, bot.IsActive)
	assert.NotEmpty(t, bot.ShareToken)
	assert.Equal(t, "sk-ant-a...mnop", bot.APIKey.MaskedKey)

	shared, err := h.api.Shared(ctx, bot.ShareToken)
	require.NoError(t, err)
	assert.Equal(t, bot.ID, shared.ID)

	off := false
	_, err = h.api.UpdateChatbot(ctx, bot.ID, types.ChatbotRequest{IsActive: &off})
	require.NoError(t, err)
	_, err = h.api.Shared(ctx, bot.ShareToken)
	assert.ErrorIs(t, err, errs.ErrForbidden)
	_, err = h.api.Shared(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	list, err := h.api.Chatbots(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Clinic", list[0].Name)

	require.NoError(t, h.api.DeleteChatbot(ctx, bot.ID))
	_, err = h.api.Chatbot(ctx, bot.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestProviders(t *testing.T) {
	h := newHarness(t)
	got, err := h.api.Providers(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.False(t, got["ollama"].RequiresAPIKey)
	assert.Equal(t, "Groq (Free)", got["groq"].Name)
}

func TestActionCRUD(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	bot := h.chatbot(t)

	created, err := h.api.CreateAction(ctx, action.Definition{
		ChatbotID: bot.ID, Name: "Booking", Type: action.ShowForm,
		TriggerKeywords: []string{"book"},
		Config:          action.DefaultsFor(action.ShowForm),
		IsActive:        true,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.True(t, created.IsActive)

	_, err = h.api.CreateAction(ctx, action.Definition{ChatbotID: bot.ID, Name: "Bad", Type: action.Redirect, Config: action.RedirectConfig{URL: "nope"}})
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = h.api.CreateAction(ctx, action.Definition{ChatbotID: 999, Name: "Orphan", Type: action.Notify, Config: action.DefaultsFor(action.Notify)})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	upd := created
	upd.ChatbotID = 999
	upd.Type = action.Notify
	upd.Config = action.NotifyConfig{Message: "Paged", Recipient: "ops"}
	got, err := h.api.UpdateAction(ctx, upd)
	require.NoError(t, err)
	assert.Equal(t, bot.ID, got.ChatbotID)

	defs, err := h.api.Actions(ctx, bot.ID)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, action.NotifyConfig{Message: "Paged", Recipient: "ops"}, defs[0].Config)

	full, err := h.api.Chatbot(ctx, bot.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, full.ActionCount)
	assert.Len(t, full.Actions, 1)

	require.NoError(t, h.api.DeleteAction(ctx, created.ID))
	assert.ErrorIs(t, h.api.DeleteAction(ctx, created.ID), errs.ErrNotFound)
	_, err = h.api.Actions(ctx, 999)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCreateActionRawBody(t *testing.T) {
	h := newHarness(t)
	bot := h.chatbot(t)

	post := func(body string) (*http.Response, types.Envelope) {
		resp, err := http.Post(h.srv.URL+"/api/actions", "application/json", bytes.NewBufferString(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		var env types.Envelope
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
		return resp, env
	}

	resp, env := post(fmt.Sprintf(`{"chatbot_id":%d,"name":"Off","action_type":"NOTIFY","is_active":false}`, bot.ID))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var d action.Definition
	require.NoError(t, json.Unmarshal(env.Data, &d))
	assert.False(t, d.IsActive)
	assert.Equal(t, action.DefaultsFor(action.Notify), d.Config)

	resp, env = post(fmt.Sprintf(`{"chatbot_id":%d,"name":"X","action_type":"DANCE"}`, bot.ID))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Detail)
}

func TestSubmitAction(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	bot := h.chatbot(t)
	other := h.chatbot(t)
	def, err := h.api.CreateAction(ctx, action.Definition{ChatbotID: bot.ID, Name: "Booking", Type: action.ShowForm, Config: action.DefaultsFor(action.ShowForm), IsActive: true})
	require.NoError(t, err)

	res, err := h.api.SubmitAction(ctx, types.SubmitActionRequest{ChatbotID: bot.ID, ActionID: def.ID, SessionID: "s", FormData: map[string]string{"name": "Ana"}})
	require.NoError(t, err)
	assert.Equal(t, "completed", res["status"])
	assert.Equal(t, "Action submitted successfully", res.Message())

	_, err = h.api.SubmitAction(ctx, types.SubmitActionRequest{ChatbotID: other.ID, ActionID: def.ID})
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = h.api.SubmitAction(ctx, types.SubmitActionRequest{ChatbotID: bot.ID, ActionID: 999})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	subs, err := h.api.Submissions(ctx, bot.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, map[string]string{"name": "Ana"}, subs[0].FormData)
}

func TestChatFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	bot := h.chatbot(t)
	def, err := h.api.CreateAction(ctx, action.Definition{ChatbotID: bot.ID, Name: "Booking", Type: action.ShowForm, TriggerKeywords: []string{"book"}, Config: action.DefaultsFor(action.ShowForm), IsActive: true})
	require.NoError(t, err)

	h.builder.reply = fmt.Sprintf(`Sure. [ACTION]{"action_type":"SHOW_FORM","action_id":%d,"action_name":"Booking","data":{"prefill":{"name":"Ana"}}}[/ACTION]`, def.ID)
	resp, err := h.api.Chat(ctx, types.ChatRequest{ChatbotID: bot.ID, Message: "I'm Ana, can I come by?"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "Sure.", resp.Response)
	require.NotNil(t, resp.Action)
	form := resp.Action.Data.(action.FormConfig)
	assert.Equal(t, "Ana", form.Prefill["name"])

	hist, err := h.api.History(ctx, bot.ID, resp.SessionID)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	require.NotNil(t, hist[1].ActionData)
	assert.Equal(t, def.ID, hist[1].ActionData.ActionID)

	sessions, err := h.api.Sessions(ctx, bot.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, resp.SessionID, sessions[0].SessionID)

	h.builder.reply = "Happy to help."
	resp, err = h.api.Chat(ctx, types.ChatRequest{ChatbotID: bot.ID, SessionID: resp.SessionID, Message: "I want to book"})
	require.NoError(t, err)
	require.NotNil(t, resp.Action)
	assert.Equal(t, def.ID, resp.Action.ActionID)
}

func TestChatSkipsInactiveAction(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	bot := h.chatbot(t)
	def, err := h.api.CreateAction(ctx, action.Definition{ChatbotID: bot.ID, Name: "Booking", Type: action.ShowForm, TriggerKeywords: []string{"book"}, Config: action.DefaultsFor(action.ShowForm)})
	require.NoError(t, err)
	assert.False(t, def.IsActive)

	h.builder.reply = fmt.Sprintf(`Sure. [ACTION]{"action_type":"SHOW_FORM","action_id":%d,"action_name":"Booking","data":{}}[/ACTION]`, def.ID)
	resp, err := h.api.Chat(ctx, types.ChatRequest{ChatbotID: bot.ID, Message: "I want to book"})
	require.NoError(t, err)
	assert.Equal(t, "Sure.", resp.Response)
	assert.Nil(t, resp.Action)
}

func TestChatSessionHeaderAndErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	bot := h.chatbot(t)

	body := fmt.Sprintf(`{"chatbot_id":%d,"message":"hi"}`, bot.ID)
	req, err := http.NewRequest(http.MethodPost, h.srv.URL+"/api/chat", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set(SessionHeader, "from-header")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "from-header", resp.Header.Get(SessionHeader))

	h.builder.err = fmt.Errorf("%w: upstream down", errs.ErrProvider)
	_, err = h.api.Chat(ctx, types.ChatRequest{ChatbotID: bot.ID, Message: "hi"})
	var se *errs.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Status)

	_, err = h.api.Chat(ctx, types.ChatRequest{ChatbotID: 999, Message: "hi"})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestEndSessionClearsCookie(t *testing.T) {
	h := newHarness(t)
	bot := h.chatbot(t)

	body := fmt.Sprintf(`{"chatbot_id":%d,"message":"hi"}`, bot.ID)
	resp, err := http.Post(h.srv.URL+"/api/chat", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	resp.Body.Close()
	var sid string
	for _, c := range resp.Cookies() {
		if c.Name == CookieName {
			sid = c.Value
		}
	}
	require.NotEmpty(t, sid)

	req, err := http.NewRequest(http.MethodDelete, h.srv.URL+"/api/chat/session", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: sid})
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var cleared *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == CookieName {
			cleared = c
		}
	}
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)

	hist, err := h.api.History(context.Background(), bot.ID, sid)
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}

func TestAPIKeys(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.api.SaveAPIKeys(ctx, map[string]string{
		"openai": "sk-proj-1234567890abcd",
		"groq":   "short",
		"ollama": "ignored",
		"bogus":  "ignored",
	}))
	keys, err := h.api.APIKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	assert.Equal(t, "sk-proj-...abcd", keys["openai"].MaskedKey)
	assert.Equal(t, "****", keys["groq"].MaskedKey)

	require.NoError(t, h.api.SaveAPIKeys(ctx, map[string]string{"groq": ""}))
	keys, err = h.api.APIKeys(ctx)
	require.NoError(t, err)
	assert.False(t, keys.IsSet("groq"))

	require.NoError(t, h.api.DeleteAPIKey(ctx, "openai"))
	assert.ErrorIs(t, h.api.DeleteAPIKey(ctx, "openai"), errs.ErrNotFound)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errs.Invalid("x", "bad"), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", errs.ErrNotFound), http.StatusNotFound},
		{errs.ErrForbidden, http.StatusForbidden},
		{errs.ErrProvider, http.StatusBadGateway},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
