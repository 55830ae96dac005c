// Package runtime drives a delivered action instance through its local state
// machine. Runtimes never touch a transcript; a form reports completion
// through the callback it was built with.
package runtime

import (
	"context"

	"actionbot/internal/action"
	"actionbot/internal/types"
)

// Submitter sends a completed form to the backend.
type Submitter interface {
	SubmitAction(ctx context.Context, req types.SubmitActionRequest) (types.SubmitResult, error)
}

// Runtime is implemented by *Form, *Guide, *Redirect and *Notify.
type Runtime interface {
	Type() action.Type
	Name() string
}

type Options struct {
	ChatbotID int64
	// SessionID is read at submit time so a rotated id is honoured.
	SessionID  func() string
	Submitter  Submitter
	OnComplete func(types.SubmitResult)
	// Opener hands a URL to whatever can show it.
	Opener func(url string) error
}

// New builds the runtime for inst. Unknown or absent tags yield nil, which
// callers render as nothing.
func New(inst *action.Instance, opts Options) Runtime {
	if inst == nil || !inst.Type.Known() {
		return nil
	}
	data := inst.Data
	if data == nil || data.Type() != inst.Type {
		data = fallbackData(inst.Type)
	}
	switch inst.Type {
	case action.ShowForm:
		return newForm(inst, data.(action.FormConfig), opts)
	case action.ShowGuide:
		return newGuide(inst, data.(action.GuideConfig))
	case action.Redirect:
		return newRedirect(inst, data.(action.RedirectConfig), opts.Opener)
	case action.Notify:
		return newNotify(inst, data.(action.NotifyConfig))
	}
	return nil
}

// fallbackData stands in for missing data. Forms and guides need something
// to show, so they get the variant defaults. Redirects and notifications
// get an empty config: the label and message fall back on their own and
// an empty URL is never opened.
func fallbackData(t action.Type) action.Config {
	switch t {
	case action.Redirect:
		return action.RedirectConfig{}
	case action.Notify:
		return action.NotifyConfig{}
	}
	return action.DefaultsFor(t)
}
