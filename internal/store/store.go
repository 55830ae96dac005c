// Package store persists chatbots, action definitions, conversations,
// submissions and global API keys.
package store

import (
	"context"

	"actionbot/internal/action"
	"actionbot/internal/model"
)

// Store is implemented by MemoryStore and GormStore. Lookups of missing
// records return errors matching errs.ErrNotFound.
type Store interface {
	CreateChatbot(ctx context.Context, c *model.Chatbot) error
	Chatbot(ctx context.Context, id int64) (model.Chatbot, error)
	ChatbotByShareToken(ctx context.Context, token string) (model.Chatbot, error)
	// ListChatbots returns newest first.
	ListChatbots(ctx context.Context) ([]model.Chatbot, error)
	UpdateChatbot(ctx context.Context, c *model.Chatbot) error
	// DeleteChatbot also removes the chatbot's actions, messages and
	// submissions.
	DeleteChatbot(ctx context.Context, id int64) error

	CreateAction(ctx context.Context, d *action.Definition) error
	Action(ctx context.Context, id int64) (action.Definition, error)
	// ListActions returns the chatbot's definitions ordered by id.
	ListActions(ctx context.Context, chatbotID int64) ([]action.Definition, error)
	UpdateAction(ctx context.Context, d *action.Definition) error
	DeleteAction(ctx context.Context, id int64) error

	// AppendMessages stores all messages or none.
	AppendMessages(ctx context.Context, msgs ...*model.Message) error
	// History returns messages in ascending order. A positive limit keeps
	// only the most recent limit messages.
	History(ctx context.Context, chatbotID int64, sessionID string, limit int) ([]model.Message, error)
	// Sessions returns one entry per session, most recently active first.
	Sessions(ctx context.Context, chatbotID int64) ([]model.SessionSummary, error)

	CreateSubmission(ctx context.Context, s *model.Submission) error
	// ListSubmissions returns newest first.
	ListSubmissions(ctx context.Context, chatbotID int64) ([]model.Submission, error)

	// APIKeys maps provider to raw key. Callers must mask before exposing.
	APIKeys(ctx context.Context) (map[string]string, error)
	// APIKey returns "" when no key is stored.
	APIKey(ctx context.Context, provider string) (string, error)
	SetAPIKey(ctx context.Context, provider, key string) error
	// SaveAPIKeys applies every entry or none. An empty key removes the
	// provider's key; removing a key that is not stored is not an error.
	SaveAPIKeys(ctx context.Context, keys map[string]string) error
	DeleteAPIKey(ctx context.Context, provider string) error

	Ping(ctx context.Context) error
	Close() error
}
