// Package editor is the authoring surface for action definitions.
package editor

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"actionbot/internal/action"
	"actionbot/internal/errs"
)

// Backend persists definitions.
type Backend interface {
	CreateAction(ctx context.Context, d action.Definition) (action.Definition, error)
	UpdateAction(ctx context.Context, d action.Definition) (action.Definition, error)
	DeleteAction(ctx context.Context, id int64) error
}

// Draft is a definition being edited. Its config lives in a two-slot
// ConfigDraft, so an invalid raw edit never replaces the last valid config.
type Draft struct {
	ID          int64
	ChatbotID   int64
	Name        string
	Keywords    string
	Description string
	IsActive    bool

	config *action.ConfigDraft
}

// NewDraft starts a SHOW_FORM definition with default config.
func NewDraft(chatbotID int64) *Draft {
	return &Draft{
		ChatbotID: chatbotID,
		IsActive:  true,
		config:    action.NewConfigDraft(action.ShowForm, nil),
	}
}

// EditDraft loads an existing definition for editing.
func EditDraft(d action.Definition) *Draft {
	return &Draft{
		ID:          d.ID,
		ChatbotID:   d.ChatbotID,
		Name:        d.Name,
		Keywords:    action.JoinKeywords(d.TriggerKeywords),
		Description: d.Description,
		IsActive:    d.IsActive,
		config:      action.NewConfigDraft(d.Type, d.Config),
	}
}

func (d *Draft) Type() action.Type { return d.config.Type() }

// SetType switches the variant. The previous config is discarded and
// replaced by the new variant's defaults; selecting the current type keeps it.
func (d *Draft) SetType(t action.Type) error {
	if !t.Known() {
		return errs.Invalid("action_type", "unknown action type %q", t)
	}
	if t == d.config.Type() {
		return nil
	}
	d.config.Reset(t)
	return nil
}

// SetRawConfig applies a raw JSON edit. It reports whether the edit was
// committed; a rejected edit leaves the committed config as it was.
func (d *Draft) SetRawConfig(raw string) bool { return d.config.Edit(raw) }

// SetConfig replaces the config when it is valid for the current type.
func (d *Draft) SetConfig(c action.Config) bool { return d.config.Set(c) }

func (d *Draft) Config() action.Config { return d.config.Committed() }
func (d *Draft) RawConfig() string     { return d.config.Raw() }

// Definition renders the draft with its committed config.
func (d *Draft) Definition() action.Definition {
	return action.Definition{
		ID:              d.ID,
		ChatbotID:       d.ChatbotID,
		Name:            d.Name,
		Type:            d.config.Type(),
		TriggerKeywords: action.ParseKeywords(d.Keywords),
		Description:     d.Description,
		Config:          d.config.Committed(),
		IsActive:        d.IsActive,
	}
}

type Editor struct {
	backend Backend
	log     *logrus.Entry
}

func New(b Backend, logger *logrus.Logger) *Editor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Editor{backend: b, log: logger.WithField("component", "editor")}
}

// Save validates the draft locally and then creates or updates it. A
// validation error never reaches the backend.
func (e *Editor) Save(ctx context.Context, d *Draft) (action.Definition, error) {
	def := d.Definition()
	if err := def.Validate(); err != nil {
		return action.Definition{}, err
	}
	var (
		saved action.Definition
		err   error
	)
	if def.ID == 0 {
		saved, err = e.backend.CreateAction(ctx, def)
	} else {
		saved, err = e.backend.UpdateAction(ctx, def)
	}
	if err != nil {
		return action.Definition{}, fmt.Errorf("save action %q: %w", def.Name, err)
	}
	d.ID = saved.ID
	e.log.WithFields(logrus.Fields{"action_id": saved.ID, "action_type": saved.Type}).Info("action saved")
	return saved, nil
}

// Delete removes a definition once confirm returns true. Without
// confirmation no call is made and ErrNotConfirmed is returned.
func (e *Editor) Delete(ctx context.Context, id int64, confirm func() bool) error {
	if id <= 0 {
		return errs.Invalid("id", "is required")
	}
	if confirm == nil || !confirm() {
		return errs.ErrNotConfirmed
	}
	if err := e.backend.DeleteAction(ctx, id); err != nil {
		return fmt.Errorf("delete action %d: %w", id, err)
	}
	e.log.WithField("action_id", id).Info("action deleted")
	return nil
}
