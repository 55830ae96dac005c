package runtime

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"actionbot/internal/action"
	"actionbot/internal/errs"
	"actionbot/internal/types"
)

// ErrNotFilling is returned for edits or submits outside the Filling state.
var ErrNotFilling = errors.New("form is not accepting input")

type FormState int

const (
	Filling FormState = iota
	Submitting
	Submitted
)

func (s FormState) String() string {
	switch s {
	case Filling:
		return "filling"
	case Submitting:
		return "submitting"
	case Submitted:
		return "submitted"
	}
	return "unknown"
}

type Form struct {
	actionID int64
	name     string
	fields   []action.FormField
	opts     Options

	mu     sync.Mutex
	state  FormState
	values map[string]string
	result types.SubmitResult
}

func newForm(inst *action.Instance, cfg action.FormConfig, opts Options) *Form {
	if len(cfg.Fields) == 0 {
		cfg.Fields = action.DefaultsFor(action.ShowForm).(action.FormConfig).Fields
	}
	cfg = action.Clone(cfg).(action.FormConfig)
	f := &Form{
		actionID: inst.ActionID,
		name:     inst.Name,
		fields:   cfg.Fields,
		opts:     opts,
		values:   make(map[string]string),
	}
	for name, v := range cfg.Prefill {
		if field, ok := cfg.Field(name); ok && accepts(field, v) {
			f.values[name] = v
		}
	}
	return f
}

func (f *Form) Type() action.Type { return action.ShowForm }
func (f *Form) Name() string      { return f.name }

// Fields returns the fields in display order.
func (f *Form) Fields() []action.FormField {
	return action.Clone(action.FormConfig{Fields: f.fields}).(action.FormConfig).Fields
}

func (f *Form) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Form) Value(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[name]
}

func (f *Form) Values() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyValues(f.values)
}

// Result is the backend payload once the form is Submitted.
func (f *Form) Result() types.SubmitResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

// Set records a field value. An empty value clears the field. Select fields
// only take one of their options.
func (f *Form) Set(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Filling {
		return ErrNotFilling
	}
	var field *action.FormField
	for i := range f.fields {
		if f.fields[i].Name == name {
			field = &f.fields[i]
			break
		}
	}
	if field == nil {
		return errs.Invalid(name, "unknown field")
	}
	if value == "" {
		delete(f.values, name)
		return nil
	}
	if !accepts(*field, value) {
		return errs.Invalid(name, "%q is not one of the options", value)
	}
	f.values[name] = value
	return nil
}

// Missing lists required fields that are still blank, in display order.
func (f *Form) Missing() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.missingLocked()
}

func (f *Form) missingLocked() []string {
	var out []string
	for _, field := range f.fields {
		if field.Required && strings.TrimSpace(f.values[field.Name]) == "" {
			out = append(out, field.Name)
		}
	}
	return out
}

// Submit validates locally and, only if every required field is filled,
// sends the values. On failure the form returns to Filling with its values
// intact. On success it is Submitted for good and OnComplete receives the
// backend's result.
func (f *Form) Submit(ctx context.Context) (types.SubmitResult, error) {
	f.mu.Lock()
	if f.state != Filling {
		f.mu.Unlock()
		return nil, ErrNotFilling
	}
	if missing := f.missingLocked(); len(missing) > 0 {
		f.mu.Unlock()
		return nil, errs.Invalid(missing[0], "is required")
	}
	if f.opts.Submitter == nil {
		f.mu.Unlock()
		return nil, fmt.Errorf("submit %s: no submitter: %w", f.name, errs.ErrNetwork)
	}
	req := types.SubmitActionRequest{
		ChatbotID: f.opts.ChatbotID,
		ActionID:  f.actionID,
		FormData:  copyValues(f.values),
	}
	if f.opts.SessionID != nil {
		req.SessionID = f.opts.SessionID()
	}
	f.state = Submitting
	f.mu.Unlock()

	res, err := f.opts.Submitter.SubmitAction(ctx, req)

	f.mu.Lock()
	if err != nil {
		f.state = Filling
		f.mu.Unlock()
		return nil, fmt.Errorf("submit %s: %w", f.name, err)
	}
	f.state = Submitted
	f.result = res
	f.mu.Unlock()

	if f.opts.OnComplete != nil {
		f.opts.OnComplete(res)
	}
	return res, nil
}

func accepts(field action.FormField, value string) bool {
	if field.Type != action.FieldSelect {
		return true
	}
	return slices.Contains(field.Options, value)
}

func copyValues(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
