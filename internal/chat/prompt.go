package chat

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"actionbot/internal/action"
	"actionbot/internal/model"
)

//go:embed prompt.yaml
var defaultPromptSpec []byte

type promptSpec struct {
	System  string `yaml:"system"`
	Actions string `yaml:"actions"`
}

// Prompts renders system prompts from the prompt spec.
type Prompts struct {
	system  *template.Template
	actions *template.Template
}

var promptFuncs = template.FuncMap{"join": strings.Join}

// LoadPrompts reads the spec at path, or the embedded one when path is empty.
func LoadPrompts(path string) (*Prompts, error) {
	b := defaultPromptSpec
	if path != "" {
		var err error
		if b, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read prompt spec: %w", err)
		}
	}
	return ParsePrompts(b)
}

func ParsePrompts(b []byte) (*Prompts, error) {
	var spec promptSpec
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return nil, fmt.Errorf("parse prompt spec: %w", err)
	}
	if strings.TrimSpace(spec.System) == "" {
		return nil, fmt.Errorf("prompt spec: system template is empty")
	}
	sys, err := template.New("system").Funcs(promptFuncs).Parse(spec.System)
	if err != nil {
		return nil, fmt.Errorf("prompt spec system: %w", err)
	}
	act, err := template.New("actions").Funcs(promptFuncs).Parse(spec.Actions)
	if err != nil {
		return nil, fmt.Errorf("prompt spec actions: %w", err)
	}
	return &Prompts{system: sys, actions: act}, nil
}

// Render builds the system prompt. Inactive actions are left out.
func (p *Prompts) Render(bot model.Chatbot, defs []action.Definition) (string, error) {
	var b strings.Builder
	if err := p.system.Execute(&b, bot); err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	if active := action.Active(defs); len(active) > 0 {
		if err := p.actions.Execute(&b, active); err != nil {
			return "", fmt.Errorf("render action prompt: %w", err)
		}
	}
	return b.String(), nil
}
