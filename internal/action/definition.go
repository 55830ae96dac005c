package action

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"actionbot/internal/errs"
)

// Definition is an operator-authored action bound to one chatbot.
type Definition struct {
	ID              int64     `json:"id"`
	ChatbotID       int64     `json:"chatbot_id"`
	Name            string    `json:"name"`
	Type            Type      `json:"action_type"`
	TriggerKeywords []string  `json:"trigger_keywords"`
	Description     string    `json:"description"`
	Config          Config    `json:"config"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// Validate checks the fields a definition needs before it is saved.
func (d *Definition) Validate() error {
	if d.ChatbotID <= 0 {
		return errs.Invalid("chatbot_id", "is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		return errs.Invalid("name", "must not be empty")
	}
	return Validate(d.Type, d.Config)
}

// Clone returns a copy that shares no slices or maps with d.
func (d Definition) Clone() Definition {
	d.TriggerKeywords = append([]string(nil), d.TriggerKeywords...)
	d.Config = Clone(d.Config)
	return d
}

func (d *Definition) UnmarshalJSON(b []byte) error {
	type plain Definition
	var aux struct {
		plain
		Config json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*d = Definition(aux.plain)
	d.Config = nil
	if !d.Type.Known() {
		return errs.Invalid("action_type", "unknown action type %q", d.Type)
	}
	if isEmptyJSON(aux.Config) {
		d.Config = DefaultsFor(d.Type)
		return nil
	}
	c, err := Decode(d.Type, aux.Config)
	if err != nil {
		return fmt.Errorf("definition %d: %w", d.ID, err)
	}
	d.Config = c
	return nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

// ParseKeywords splits the comma-delimited authoring form into trimmed,
// non-empty tokens in their original order.
func ParseKeywords(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.TrimSpace(p); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// JoinKeywords renders keywords back into the authoring form.
func JoinKeywords(keywords []string) string {
	return strings.Join(keywords, ", ")
}
