package action

import "encoding/json"

// ConfigDraft keeps the raw text an operator is editing apart from the last
// config that parsed and validated. The committed slot only ever holds a
// valid config for the draft's type.
type ConfigDraft struct {
	typ       Type
	committed Config
	raw       string
}

// NewConfigDraft starts a draft from c, or from the defaults of t when c is
// nil or does not validate for t.
func NewConfigDraft(t Type, c Config) *ConfigDraft {
	d := &ConfigDraft{typ: t}
	if c != nil && Validate(t, c) == nil {
		d.committed = Clone(c)
	} else {
		d.committed = DefaultsFor(t)
	}
	d.raw = d.render()
	return d
}

func (d *ConfigDraft) Type() Type { return d.typ }

// Committed returns a copy of the last valid config.
func (d *ConfigDraft) Committed() Config { return Clone(d.committed) }

// Raw returns the current draft text, which may not parse.
func (d *ConfigDraft) Raw() string { return d.raw }

// Edit records raw as the draft text and commits it when it parses as the
// draft type's shape and validates. Otherwise the committed config is left
// untouched. The return value reports whether the edit was committed.
func (d *ConfigDraft) Edit(raw string) bool {
	d.raw = raw
	c, err := Decode(d.typ, []byte(raw))
	if err != nil {
		return false
	}
	if err := Validate(d.typ, c); err != nil {
		return false
	}
	d.committed = c
	return true
}

// Set commits c directly when it validates.
func (d *ConfigDraft) Set(c Config) bool {
	if Validate(d.typ, c) != nil {
		return false
	}
	d.committed = Clone(c)
	d.raw = d.render()
	return true
}

// Reset discards both slots and switches to the defaults of t.
func (d *ConfigDraft) Reset(t Type) {
	d.typ = t
	d.committed = DefaultsFor(t)
	d.raw = d.render()
}

// Dirty reports whether the draft text differs from the committed config.
func (d *ConfigDraft) Dirty() bool { return d.raw != d.render() }

func (d *ConfigDraft) render() string {
	if d.committed == nil {
		return ""
	}
	b, err := json.MarshalIndent(d.committed, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}
