// Package types holds the request and response bodies exchanged between the
// server and its clients.
package types

import (
	"encoding/json"
	"time"

	"actionbot/internal/action"
	"actionbot/internal/credential"
)

// Envelope wraps every response body.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Detail  string          `json:"detail,omitempty"`
}

type ChatRequest struct {
	ChatbotID int64  `json:"chatbot_id"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type ChatResponse struct {
	SessionID string           `json:"session_id"`
	Response  string           `json:"response"`
	Action    *action.Instance `json:"action,omitempty"`
}

type SubmitActionRequest struct {
	ChatbotID int64             `json:"chatbot_id"`
	ActionID  int64             `json:"action_id"`
	SessionID string            `json:"session_id"`
	FormData  map[string]string `json:"form_data"`
}

// SubmitResult is the opaque result of a form submission. It is forwarded
// untouched to whoever observes the form's completion.
type SubmitResult map[string]any

// Message returns the human readable part of the result, if any.
func (r SubmitResult) Message() string {
	if s, ok := r["message"].(string); ok {
		return s
	}
	return ""
}

type Submission struct {
	ID        int64             `json:"id"`
	ChatbotID int64             `json:"chatbot_id"`
	ActionID  int64             `json:"action_id"`
	SessionID string            `json:"session_id"`
	FormData  map[string]string `json:"form_data"`
	Status    string            `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

type HistoryMessage struct {
	ID         int64            `json:"id"`
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	ActionData *action.Instance `json:"action_data,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

type SessionSummary struct {
	SessionID     string    `json:"session_id"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// ChatbotRequest is used for create and update. Nil pointers leave the
// stored value alone on update.
type ChatbotRequest struct {
	Name         *string `json:"name,omitempty"`
	Department   *string `json:"department,omitempty"`
	Description  *string `json:"description,omitempty"`
	SystemPrompt *string `json:"system_prompt,omitempty"`
	LLMProvider  *string `json:"llm_provider,omitempty"`
	LLMModel     *string `json:"llm_model,omitempty"`
	APIKey       *string `json:"api_key,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

type Chatbot struct {
	ID           int64                `json:"id"`
	Name         string               `json:"name"`
	Department   string               `json:"department"`
	Description  string               `json:"description"`
	SystemPrompt string               `json:"system_prompt"`
	LLMProvider  string               `json:"llm_provider"`
	LLMModel     string               `json:"llm_model"`
	APIKey       credential.KeyStatus `json:"api_key"`
	IsActive     bool                 `json:"is_active"`
	ShareToken   string               `json:"share_token"`
	CreatedAt    time.Time            `json:"created_at"`
	ActionCount  int                  `json:"action_count"`
	Actions      []action.Definition  `json:"actions,omitempty"`
}

// SharedChatbot is the public view behind a share token.
type SharedChatbot struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Department  string `json:"department"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

type APIKeysRequest struct {
	Keys map[string]string `json:"keys"`
}

type Provider struct {
	Name           string   `json:"name"`
	Models         []string `json:"models"`
	RequiresAPIKey bool     `json:"requires_api_key"`
}

type Health struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}
