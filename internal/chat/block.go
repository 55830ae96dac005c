package chat

import (
	"encoding/json"
	"strings"

	"actionbot/internal/action"
)

const (
	openTag  = "[ACTION]"
	closeTag = "[/ACTION]"
)

// SplitAction removes the first [ACTION]...[/ACTION] block from a reply. It
// returns the remaining text and the block's body, which is empty when the
// reply has no complete block. The text either side is trimmed and joined
// by a newline.
func SplitAction(reply string) (text, body string) {
	start := strings.Index(reply, openTag)
	if start < 0 {
		return strings.TrimSpace(reply), ""
	}
	rel := strings.Index(reply[start:], closeTag)
	if rel < 0 {
		return strings.TrimSpace(reply), ""
	}
	end := start + rel
	body = strings.TrimSpace(reply[start+len(openTag) : end])
	text = strings.TrimSpace(reply[:start])
	if rest := strings.TrimSpace(reply[end+len(closeTag):]); rest != "" {
		if text != "" {
			text += "\n"
		}
		text += rest
	}
	return text, body
}

// Resolve turns a model emitted block into the instance to deliver. The
// block must name an active definition, by id or failing that by name.
// The instance always carries the stored config; form values the model
// supplied become prefill. It returns nil for anything it cannot place.
func Resolve(body string, defs []action.Definition) *action.Instance {
	if body == "" {
		return nil
	}
	var emitted action.Instance
	if err := json.Unmarshal([]byte(body), &emitted); err != nil {
		return nil
	}
	def := lookup(emitted, action.Active(defs))
	if def == nil {
		return nil
	}
	inst := action.NewInstance(*def)
	if form, ok := inst.Data.(action.FormConfig); ok {
		if prefill := formPrefill(form, emitted.Raw); len(prefill) > 0 {
			form.Prefill = prefill
			inst.Data = form
		}
	}
	return inst
}

func lookup(emitted action.Instance, active []action.Definition) *action.Definition {
	if emitted.ActionID > 0 {
		for i := range active {
			if active[i].ID == emitted.ActionID {
				return &active[i]
			}
		}
	}
	name := strings.TrimSpace(emitted.Name)
	if name == "" {
		return nil
	}
	for i := range active {
		if strings.EqualFold(active[i].Name, name) {
			return &active[i]
		}
	}
	return nil
}

// formPrefill collects string values for the form's fields, read from
// data.prefill when present and from data itself otherwise.
func formPrefill(form action.FormConfig, raw json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil
	}
	src := data
	if nested, ok := data["prefill"]; ok {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(nested, &inner); err == nil {
			src = inner
		}
	}
	out := map[string]string{}
	for name, v := range src {
		if _, ok := form.Field(name); !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil || strings.TrimSpace(s) == "" {
			continue
		}
		out[name] = s
	}
	return out
}
