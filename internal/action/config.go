// Package action defines action variants, their configuration shapes, the
// default-config generator and the validation rules shared by the authoring
// surface, the backend and the runtime.
package action

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"actionbot/internal/errs"
)

// Type is a variant tag.
type Type string

const (
	ShowForm  Type = "SHOW_FORM"
	ShowGuide Type = "SHOW_GUIDE"
	Redirect  Type = "REDIRECT"
	Notify    Type = "NOTIFY"
)

// Types lists every variant in authoring order.
func Types() []Type { return []Type{ShowForm, ShowGuide, Redirect, Notify} }

// Known reports whether t is one of the fixed variant tags.
func (t Type) Known() bool {
	switch t {
	case ShowForm, ShowGuide, Redirect, Notify:
		return true
	}
	return false
}

// Describe returns the authoring label and hint for a variant.
func (t Type) Describe() (label, hint string) {
	switch t {
	case ShowForm:
		return "Show Form", "Display a form for user input (e.g., reservation)"
	case ShowGuide:
		return "Show Guide", "Display step-by-step guide cards"
	case Redirect:
		return "Redirect", "Direct user to a specific URL"
	case Notify:
		return "Notify", "Send notification to a person in charge"
	}
	return string(t), ""
}

// Config is the variant-specific payload of a definition (and the data of a
// delivered instance). Implementations are FormConfig, GuideConfig,
// RedirectConfig and NotifyConfig.
type Config interface {
	Type() Type
	Validate() error
	clone() Config
}

// FieldType is the input kind of a form field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldDate     FieldType = "date"
	FieldSelect   FieldType = "select"
	FieldTextarea FieldType = "textarea"
)

func (f FieldType) known() bool {
	switch f {
	case FieldText, FieldDate, FieldSelect, FieldTextarea:
		return true
	}
	return false
}

type FormField struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
}

type FormConfig struct {
	Fields  []FormField       `json:"fields"`
	// Prefill seeds field values when the form is rendered.
	Prefill map[string]string `json:"prefill,omitempty"`
}

func (FormConfig) Type() Type { return ShowForm }

func (c FormConfig) Validate() error {
	if len(c.Fields) == 0 {
		return errs.Invalid("fields", "at least one field is required")
	}
	seen := make(map[string]struct{}, len(c.Fields))
	for i, f := range c.Fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return errs.Invalid(fmt.Sprintf("fields[%d].name", i), "must not be empty")
		}
		if _, dup := seen[name]; dup {
			return errs.Invalid(fmt.Sprintf("fields[%d].name", i), "duplicate field name %q", name)
		}
		seen[name] = struct{}{}
		if !f.Type.known() {
			return errs.Invalid(fmt.Sprintf("fields[%d].type", i), "unsupported field type %q", f.Type)
		}
		if f.Type == FieldSelect && len(f.Options) == 0 {
			return errs.Invalid(fmt.Sprintf("fields[%d].options", i), "select fields need options")
		}
	}
	return nil
}

func (c FormConfig) clone() Config {
	out := FormConfig{Fields: make([]FormField, len(c.Fields))}
	for i, f := range c.Fields {
		f.Options = append([]string(nil), f.Options...)
		out.Fields[i] = f
	}
	if c.Prefill != nil {
		out.Prefill = make(map[string]string, len(c.Prefill))
		for k, v := range c.Prefill {
			out.Prefill[k] = v
		}
	}
	return out
}

// Field returns the field with the given name.
func (c FormConfig) Field(name string) (FormField, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FormField{}, false
}

type GuideStep struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type GuideConfig struct {
	Steps []GuideStep `json:"steps"`
}

func (GuideConfig) Type() Type { return ShowGuide }

func (c GuideConfig) Validate() error {
	if len(c.Steps) == 0 {
		return errs.Invalid("steps", "at least one step is required")
	}
	return nil
}

func (c GuideConfig) clone() Config {
	return GuideConfig{Steps: append([]GuideStep(nil), c.Steps...)}
}

type RedirectConfig struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

func (RedirectConfig) Type() Type { return Redirect }

func (c RedirectConfig) Validate() error {
	raw := strings.TrimSpace(c.URL)
	if raw == "" {
		return errs.Invalid("url", "must not be empty")
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errs.Invalid("url", "%q is not an absolute URL", raw)
	}
	return nil
}

func (c RedirectConfig) clone() Config { return c }

type NotifyConfig struct {
	Message   string `json:"message"`
	Recipient string `json:"recipient"`
}

func (NotifyConfig) Type() Type { return Notify }

func (c NotifyConfig) Validate() error {
	if strings.TrimSpace(c.Message) == "" {
		return errs.Invalid("message", "must not be empty")
	}
	return nil
}

func (c NotifyConfig) clone() Config { return c }

// DefaultsFor returns a fresh default config for t, or nil for an unknown tag.
func DefaultsFor(t Type) Config {
	switch t {
	case ShowForm:
		return FormConfig{Fields: []FormField{
			{Name: "name", Label: "Name", Type: FieldText, Required: true},
			{Name: "phone", Label: "Phone", Type: FieldText, Required: true},
			{Name: "date", Label: "Preferred Date", Type: FieldDate, Required: true},
			{Name: "time", Label: "Preferred Time", Type: FieldSelect, Required: true,
				Options: []string{"09:00", "10:00", "11:00", "13:00", "14:00", "15:00", "16:00"}},
			{Name: "address", Label: "Address", Type: FieldText, Required: true},
			{Name: "details", Label: "Details", Type: FieldTextarea},
		}}
	case ShowGuide:
		return GuideConfig{Steps: []GuideStep{
			{Title: "Step 1", Content: "First step description"},
			{Title: "Step 2", Content: "Second step description"},
			{Title: "Step 3", Content: "Third step description"},
		}}
	case Redirect:
		return RedirectConfig{URL: "https://example.com", Label: "Open Link"}
	case Notify:
		return NotifyConfig{Message: "Customer needs assistance", Recipient: "manager"}
	}
	return nil
}

// Decode parses raw as the config shape of t. It does not validate.
func Decode(t Type, raw []byte) (Config, error) {
	switch t {
	case ShowForm:
		var c FormConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode %s config: %w", t, err)
		}
		return c, nil
	case ShowGuide:
		var c GuideConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode %s config: %w", t, err)
		}
		return c, nil
	case Redirect:
		var c RedirectConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode %s config: %w", t, err)
		}
		return c, nil
	case Notify:
		var c NotifyConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode %s config: %w", t, err)
		}
		return c, nil
	}
	return nil, errs.Invalid("action_type", "unknown action type %q", t)
}

// Validate checks that c is present, belongs to t and satisfies its rules.
func Validate(t Type, c Config) error {
	if !t.Known() {
		return errs.Invalid("action_type", "unknown action type %q", t)
	}
	if c == nil {
		return errs.Invalid("config", "must not be empty")
	}
	if c.Type() != t {
		return errs.Invalid("config", "config shape %s does not match type %s", c.Type(), t)
	}
	return c.Validate()
}

// Clone deep-copies a config so callers can hand it out without aliasing.
func Clone(c Config) Config {
	if c == nil {
		return nil
	}
	return c.clone()
}
