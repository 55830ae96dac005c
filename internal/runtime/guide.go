package runtime

import (
	"sync"

	"actionbot/internal/action"
)

type StepState int

const (
	StepPending StepState = iota
	StepCurrent
	StepDone
)

// Guide is a cursor over steps. Next only advances by one; Select jumps to
// any rendered step. Reaching the last step reports complete but the guide
// stays navigable.
type Guide struct {
	name  string
	steps []action.GuideStep

	mu     sync.Mutex
	cursor int
}

func newGuide(inst *action.Instance, cfg action.GuideConfig) *Guide {
	if len(cfg.Steps) == 0 {
		cfg = action.DefaultsFor(action.ShowGuide).(action.GuideConfig)
	}
	return &Guide{name: inst.Name, steps: append([]action.GuideStep(nil), cfg.Steps...)}
}

func (g *Guide) Type() action.Type { return action.ShowGuide }
func (g *Guide) Name() string      { return g.name }

func (g *Guide) Steps() []action.GuideStep { return append([]action.GuideStep(nil), g.steps...) }

func (g *Guide) Cursor() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cursor
}

func (g *Guide) Current() action.GuideStep {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.steps[g.cursor]
}

// HasNext reports whether the Next affordance is offered.
func (g *Guide) HasNext() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cursor < len(g.steps)-1
}

// Next advances one step. It reports false at the last step.
func (g *Guide) Next() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cursor >= len(g.steps)-1 {
		return false
	}
	g.cursor++
	return true
}

// Select moves the cursor to step i. Out of range indexes are ignored.
func (g *Guide) Select(i int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if i < 0 || i >= len(g.steps) {
		return false
	}
	g.cursor = i
	return true
}

func (g *Guide) Complete() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cursor == len(g.steps)-1
}

// StepState classifies step i relative to the cursor.
func (g *Guide) StepState(i int) StepState {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case i < g.cursor:
		return StepDone
	case i == g.cursor:
		return StepCurrent
	}
	return StepPending
}
