// Package model holds the persisted records and their conversions to the
// domain and wire types.
package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"actionbot/internal/action"
	"actionbot/internal/credential"
	"actionbot/internal/types"
)

const (
	DefaultProvider = "claude"
	DefaultModel    = "claude-sonnet-4-5-20250929"

	RoleUser      = "user"
	RoleAssistant = "assistant"

	StatusCompleted = "completed"
)

type Chatbot struct {
	ID           int64     `gorm:"primaryKey"`
	Name         string    `gorm:"type:varchar(255);not null"`
	Department   string    `gorm:"type:varchar(255)"`
	Description  string    `gorm:"type:text"`
	SystemPrompt string    `gorm:"type:text"`
	LLMProvider  string    `gorm:"type:varchar(50)"`
	LLMModel     string    `gorm:"type:varchar(100)"`
	APIKey       string    `gorm:"type:text"`
	IsActive     bool      `gorm:"not null"`
	ShareToken   string    `gorm:"type:varchar(64);uniqueIndex"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// View renders the chatbot for operators. The key only appears masked.
func (c Chatbot) View(actions []action.Definition) types.Chatbot {
	return types.Chatbot{
		ID:           c.ID,
		Name:         c.Name,
		Department:   c.Department,
		Description:  c.Description,
		SystemPrompt: c.SystemPrompt,
		LLMProvider:  c.LLMProvider,
		LLMModel:     c.LLMModel,
		APIKey:       credential.StatusOf(c.APIKey),
		IsActive:     c.IsActive,
		ShareToken:   c.ShareToken,
		CreatedAt:    c.CreatedAt,
		ActionCount:  len(actions),
		Actions:      actions,
	}
}

// Shared renders the public view behind a share token.
func (c Chatbot) Shared() types.SharedChatbot {
	return types.SharedChatbot{
		ID:          c.ID,
		Name:        c.Name,
		Department:  c.Department,
		Description: c.Description,
		IsActive:    c.IsActive,
	}
}

// Apply copies the set fields of req onto c.
func (c *Chatbot) Apply(req types.ChatbotRequest) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&c.Name, req.Name)
	set(&c.Department, req.Department)
	set(&c.Description, req.Description)
	set(&c.SystemPrompt, req.SystemPrompt)
	set(&c.LLMProvider, req.LLMProvider)
	set(&c.LLMModel, req.LLMModel)
	set(&c.APIKey, req.APIKey)
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
}

type Action struct {
	ID              int64    `gorm:"primaryKey"`
	ChatbotID       int64    `gorm:"index;not null"`
	Name            string   `gorm:"type:varchar(255);not null"`
	ActionType      string   `gorm:"type:varchar(32);not null"`
	TriggerKeywords []string `gorm:"serializer:json"`
	Description     string   `gorm:"type:text"`
	Config          datatypes.JSON
	IsActive        bool      `gorm:"not null"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

func ActionFrom(d action.Definition) (Action, error) {
	cfg, err := json.Marshal(d.Config)
	if err != nil {
		return Action{}, fmt.Errorf("encode config: %w", err)
	}
	return Action{
		ID:              d.ID,
		ChatbotID:       d.ChatbotID,
		Name:            d.Name,
		ActionType:      string(d.Type),
		TriggerKeywords: append([]string{}, d.TriggerKeywords...),
		Description:     d.Description,
		Config:          datatypes.JSON(cfg),
		IsActive:        d.IsActive,
		CreatedAt:       d.CreatedAt,
	}, nil
}

func (a Action) Definition() (action.Definition, error) {
	d := action.Definition{
		ID:              a.ID,
		ChatbotID:       a.ChatbotID,
		Name:            a.Name,
		Type:            action.Type(a.ActionType),
		TriggerKeywords: append([]string{}, a.TriggerKeywords...),
		Description:     a.Description,
		IsActive:        a.IsActive,
		CreatedAt:       a.CreatedAt,
	}
	if len(a.Config) == 0 || string(a.Config) == "null" {
		d.Config = action.DefaultsFor(d.Type)
		return d, nil
	}
	cfg, err := action.Decode(d.Type, a.Config)
	if err != nil {
		return action.Definition{}, fmt.Errorf("action %d: %w", a.ID, err)
	}
	d.Config = cfg
	return d, nil
}

// Message is one persisted conversation turn.
type Message struct {
	ID         int64  `gorm:"primaryKey"`
	ChatbotID  int64  `gorm:"index:idx_messages_chat;not null"`
	SessionID  string `gorm:"type:varchar(64);index:idx_messages_chat;not null"`
	Role       string `gorm:"type:varchar(16);not null"`
	Content    string `gorm:"type:text;not null"`
	ActionData datatypes.JSON
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// SetAction stores inst as the message's action payload.
func (m *Message) SetAction(inst *action.Instance) error {
	if inst == nil {
		m.ActionData = nil
		return nil
	}
	b, err := json.Marshal(inst)
	if err != nil {
		return err
	}
	m.ActionData = datatypes.JSON(b)
	return nil
}

// Instance decodes the stored action payload, or returns nil.
func (m Message) Instance() *action.Instance {
	if len(m.ActionData) == 0 || string(m.ActionData) == "null" {
		return nil
	}
	var inst action.Instance
	if err := json.Unmarshal(m.ActionData, &inst); err != nil {
		return nil
	}
	return &inst
}

func (m Message) History() types.HistoryMessage {
	return types.HistoryMessage{
		ID:         m.ID,
		Role:       m.Role,
		Content:    m.Content,
		ActionData: m.Instance(),
		CreatedAt:  m.CreatedAt,
	}
}

type Submission struct {
	ID        int64          `gorm:"primaryKey"`
	ChatbotID int64          `gorm:"index;not null"`
	ActionID  int64          `gorm:"index;not null"`
	SessionID string         `gorm:"type:varchar(64);not null"`
	FormData  datatypes.JSON `gorm:"not null"`
	Status    string         `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
}

func (s Submission) Values() map[string]string {
	out := map[string]string{}
	if len(s.FormData) > 0 {
		_ = json.Unmarshal(s.FormData, &out)
	}
	return out
}

func (s Submission) View() types.Submission {
	return types.Submission{
		ID:        s.ID,
		ChatbotID: s.ChatbotID,
		ActionID:  s.ActionID,
		SessionID: s.SessionID,
		FormData:  s.Values(),
		Status:    s.Status,
		CreatedAt: s.CreatedAt,
	}
}

// APIKey is an operator's global key for one provider.
type APIKey struct {
	Provider  string    `gorm:"primaryKey;type:varchar(32)"`
	Key       string    `gorm:"column:api_key;type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (APIKey) TableName() string { return "api_key_settings" }

// SessionSummary describes one conversation of a chatbot.
type SessionSummary struct {
	SessionID     string
	LastMessageAt time.Time
}
