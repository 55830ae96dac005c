package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"actionbot/internal/action"
	"actionbot/internal/errs"
	"actionbot/internal/model"
)

// MemoryStore keeps everything in process. Reads hand out copies.
type MemoryStore struct {
	mu          sync.RWMutex
	chatbots    map[int64]model.Chatbot
	actions     map[int64]action.Definition
	messages    []model.Message
	submissions []model.Submission
	apiKeys     map[string]model.APIKey
	lastID      int64
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chatbots: make(map[int64]model.Chatbot),
		actions:  make(map[int64]action.Definition),
		apiKeys:  make(map[string]model.APIKey),
		now:      time.Now,
	}
}

func (m *MemoryStore) nextIDLocked() int64 {
	m.lastID++
	return m.lastID
}

// stampLocked returns a strictly increasing time so ordering by time is stable.
func (m *MemoryStore) stampLocked(last time.Time) time.Time {
	t := m.now().UTC()
	if !t.After(last) {
		t = last.Add(time.Microsecond)
	}
	return t
}

func notFound(kind string, id any) error {
	return fmt.Errorf("%s %v: %w", kind, id, errs.ErrNotFound)
}

// Chatbots

func (m *MemoryStore) CreateChatbot(_ context.Context, c *model.Chatbot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.chatbots {
		if c.ShareToken != "" && other.ShareToken == c.ShareToken {
			return fmt.Errorf("share token already in use")
		}
	}
	c.ID = m.nextIDLocked()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = m.now().UTC()
	}
	m.chatbots[c.ID] = *c
	return nil
}

func (m *MemoryStore) Chatbot(_ context.Context, id int64) (model.Chatbot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.chatbots[id]
	if !ok {
		return model.Chatbot{}, notFound("chatbot", id)
	}
	return c, nil
}

func (m *MemoryStore) ChatbotByShareToken(_ context.Context, token string) (model.Chatbot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.chatbots {
		if token != "" && c.ShareToken == token {
			return c, nil
		}
	}
	return model.Chatbot{}, notFound("share token", token)
}

func (m *MemoryStore) ListChatbots(_ context.Context) ([]model.Chatbot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Chatbot, 0, len(m.chatbots))
	for _, c := range m.chatbots {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) UpdateChatbot(_ context.Context, c *model.Chatbot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.chatbots[c.ID]
	if !ok {
		return notFound("chatbot", c.ID)
	}
	c.CreatedAt = old.CreatedAt
	c.ShareToken = old.ShareToken
	m.chatbots[c.ID] = *c
	return nil
}

func (m *MemoryStore) DeleteChatbot(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.chatbots[id]; !ok {
		return notFound("chatbot", id)
	}
	delete(m.chatbots, id)
	for aid, d := range m.actions {
		if d.ChatbotID == id {
			delete(m.actions, aid)
		}
	}
	msgs := m.messages[:0]
	for _, msg := range m.messages {
		if msg.ChatbotID != id {
			msgs = append(msgs, msg)
		}
	}
	m.messages = msgs
	subs := m.submissions[:0]
	for _, s := range m.submissions {
		if s.ChatbotID != id {
			subs = append(subs, s)
		}
	}
	m.submissions = subs
	return nil
}

// Actions

func (m *MemoryStore) CreateAction(_ context.Context, d *action.Definition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.chatbots[d.ChatbotID]; !ok {
		return notFound("chatbot", d.ChatbotID)
	}
	d.ID = m.nextIDLocked()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = m.now().UTC()
	}
	m.actions[d.ID] = d.Clone()
	return nil
}

func (m *MemoryStore) Action(_ context.Context, id int64) (action.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.actions[id]
	if !ok {
		return action.Definition{}, notFound("action", id)
	}
	return d.Clone(), nil
}

func (m *MemoryStore) ListActions(_ context.Context, chatbotID int64) ([]action.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []action.Definition{}
	for _, d := range m.actions {
		if d.ChatbotID == chatbotID {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateAction(_ context.Context, d *action.Definition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.actions[d.ID]
	if !ok {
		return notFound("action", d.ID)
	}
	d.ChatbotID = old.ChatbotID
	d.CreatedAt = old.CreatedAt
	m.actions[d.ID] = d.Clone()
	return nil
}

func (m *MemoryStore) DeleteAction(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.actions[id]; !ok {
		return notFound("action", id)
	}
	delete(m.actions, id)
	return nil
}

// Conversations

func (m *MemoryStore) AppendMessages(_ context.Context, msgs ...*model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last time.Time
	if n := len(m.messages); n > 0 {
		last = m.messages[n-1].CreatedAt
	}
	for _, msg := range msgs {
		msg.ID = m.nextIDLocked()
		msg.CreatedAt = m.stampLocked(last)
		last = msg.CreatedAt
		m.messages = append(m.messages, *msg)
	}
	return nil
}

func (m *MemoryStore) History(_ context.Context, chatbotID int64, sessionID string, limit int) ([]model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.Message{}
	for _, msg := range m.messages {
		if msg.ChatbotID == chatbotID && msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *MemoryStore) Sessions(_ context.Context, chatbotID int64) ([]model.SessionSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	latest := map[string]time.Time{}
	for _, msg := range m.messages {
		if msg.ChatbotID != chatbotID {
			continue
		}
		if msg.CreatedAt.After(latest[msg.SessionID]) {
			latest[msg.SessionID] = msg.CreatedAt
		}
	}
	out := make([]model.SessionSummary, 0, len(latest))
	for id, at := range latest {
		out = append(out, model.SessionSummary{SessionID: id, LastMessageAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageAt.After(out[j].LastMessageAt) })
	return out, nil
}

// Submissions

func (m *MemoryStore) CreateSubmission(_ context.Context, s *model.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last time.Time
	if n := len(m.submissions); n > 0 {
		last = m.submissions[n-1].CreatedAt
	}
	s.ID = m.nextIDLocked()
	s.CreatedAt = m.stampLocked(last)
	m.submissions = append(m.submissions, *s)
	return nil
}

func (m *MemoryStore) ListSubmissions(_ context.Context, chatbotID int64) ([]model.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []model.Submission{}
	for i := len(m.submissions) - 1; i >= 0; i-- {
		if m.submissions[i].ChatbotID == chatbotID {
			out = append(out, m.submissions[i])
		}
	}
	return out, nil
}

// API keys

func (m *MemoryStore) APIKeys(_ context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.apiKeys))
	for p, k := range m.apiKeys {
		out[p] = k.Key
	}
	return out, nil
}

func (m *MemoryStore) APIKey(_ context.Context, provider string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.apiKeys[provider].Key, nil
}

func (m *MemoryStore) SetAPIKey(_ context.Context, provider, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiKeys[provider] = model.APIKey{Provider: provider, Key: key, UpdatedAt: m.now().UTC()}
	return nil
}

func (m *MemoryStore) SaveAPIKeys(_ context.Context, keys map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now().UTC()
	for provider, key := range keys {
		if key == "" {
			delete(m.apiKeys, provider)
			continue
		}
		m.apiKeys[provider] = model.APIKey{Provider: provider, Key: key, UpdatedAt: now}
	}
	return nil
}

func (m *MemoryStore) DeleteAPIKey(_ context.Context, provider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.apiKeys[provider]; !ok {
		return notFound("api key", provider)
	}
	delete(m.apiKeys, provider)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
func (m *MemoryStore) Close() error               { return nil }
