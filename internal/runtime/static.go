package runtime

import (
	"fmt"
	"strings"

	"actionbot/internal/action"
	"actionbot/internal/errs"
)

const (
	defaultRedirectLabel = "Open link"
	defaultNotifyText    = "The person in charge has been notified."
)

// Redirect offers a single link. Opening it has no completion signal.
type Redirect struct {
	name   string
	cfg    action.RedirectConfig
	opener func(string) error
}

func newRedirect(inst *action.Instance, cfg action.RedirectConfig, opener func(string) error) *Redirect {
	return &Redirect{name: inst.Name, cfg: cfg, opener: opener}
}

func (r *Redirect) Type() action.Type { return action.Redirect }
func (r *Redirect) Name() string      { return r.name }
func (r *Redirect) URL() string       { return r.cfg.URL }

// Label falls back from the configured label to the action name.
func (r *Redirect) Label() string {
	if l := strings.TrimSpace(r.cfg.Label); l != "" {
		return l
	}
	if n := strings.TrimSpace(r.name); n != "" {
		return n
	}
	return defaultRedirectLabel
}

// Open hands exactly the configured URL to the opener.
func (r *Redirect) Open() error {
	if strings.TrimSpace(r.cfg.URL) == "" {
		return errs.Invalid("url", "must not be empty")
	}
	if r.opener == nil {
		return fmt.Errorf("open %s: no opener configured", r.cfg.URL)
	}
	return r.opener(r.cfg.URL)
}

// Notify is informational only.
type Notify struct {
	name string
	cfg  action.NotifyConfig
}

func newNotify(inst *action.Instance, cfg action.NotifyConfig) *Notify {
	return &Notify{name: inst.Name, cfg: cfg}
}

func (n *Notify) Type() action.Type { return action.Notify }
func (n *Notify) Name() string      { return n.name }
func (n *Notify) Recipient() string { return n.cfg.Recipient }

func (n *Notify) Message() string {
	if m := strings.TrimSpace(n.cfg.Message); m != "" {
		return m
	}
	return defaultNotifyText
}
