package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"actionbot/internal/errs"
	"actionbot/internal/runtime"
	"actionbot/internal/session"
)

const (
	msgShareNotFound = "This chatbot could not be found."
	msgShareInactive = "This chatbot is currently inactive."
)

// RenderTurn formats transcript entry idx and, for assistant turns, the
// action bound to it.
func RenderTurn(idx int, t session.Turn, rt runtime.Runtime) string {
	var b strings.Builder
	switch t.Kind {
	case session.UserTurn:
		fmt.Fprintf(&b, "you: %s", t.Text)
	case session.AssistantTurn:
		fmt.Fprintf(&b, "bot: %s", t.Text)
	case session.ErrorTurn:
		fmt.Fprintf(&b, "bot: %s", t.Text)
	case session.SystemTurn:
		fmt.Fprintf(&b, "  * %s", t.Text)
	}
	if rt != nil {
		b.WriteString("\n")
		b.WriteString(RenderRuntime(idx, rt))
	}
	return b.String()
}

// RenderRuntime draws an action card. The index is what the user types in
// commands such as /fill.
func RenderRuntime(idx int, rt runtime.Runtime) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  +-- [%d] %s (%s)\n", idx, rt.Name(), rt.Type())
	switch r := rt.(type) {
	case *runtime.Form:
		b.WriteString(renderForm(r))
		fmt.Fprintf(&b, "  +-- /fill %d to complete", idx)
	case *runtime.Guide:
		b.WriteString(renderGuide(r))
		fmt.Fprintf(&b, "  +-- /next %d, /step %d <n>", idx, idx)
	case *runtime.Redirect:
		fmt.Fprintf(&b, "  |   %s -> %s\n", r.Label(), r.URL())
		fmt.Fprintf(&b, "  +-- /open %d", idx)
	case *runtime.Notify:
		fmt.Fprintf(&b, "  |   %s\n", r.Message())
		b.WriteString("  +--")
	}
	return b.String()
}

func renderForm(f *runtime.Form) string {
	var b strings.Builder
	for _, field := range f.Fields() {
		mark := " "
		if field.Required {
			mark = "*"
		}
		value := f.Value(field.Name)
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(&b, "  | %s %s: %s", mark, field.Label, value)
		if len(field.Options) > 0 {
			fmt.Fprintf(&b, "  (%s)", strings.Join(field.Options, " | "))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "  |   state: %s\n", f.State())
	return b.String()
}

func renderGuide(g *runtime.Guide) string {
	var b strings.Builder
	for i, step := range g.Steps() {
		marker := "[ ]"
		switch g.StepState(i) {
		case runtime.StepCurrent:
			marker = "[>]"
		case runtime.StepDone:
			marker = "[x]"
		}
		fmt.Fprintf(&b, "  | %s %d. %s\n", marker, i+1, step.Title)
	}
	cur := g.Current()
	fmt.Fprintf(&b, "  |   %s\n", cur.Content)
	if g.Complete() {
		b.WriteString("  |   (guide complete)\n")
	}
	return b.String()
}

// SharedError turns a failed share-token lookup into the message shown to
// the visitor.
func SharedError(err error) string {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return msgShareNotFound
	case errors.Is(err, errs.ErrForbidden):
		return msgShareInactive
	}
	return "Could not reach the server. Please try again later."
}

// parseCommand splits "/cmd a b" into its name and arguments. Lines not
// starting with a slash are not commands.
func parseCommand(line string) (string, []string, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return "", nil, false
	}
	parts := strings.Fields(line[1:])
	if len(parts) == 0 {
		return "", nil, true
	}
	return strings.ToLower(parts[0]), parts[1:], true
}

func parseIndex(args []string, pos int) (int, error) {
	if len(args) <= pos {
		return 0, fmt.Errorf("missing turn number")
	}
	n, err := strconv.Atoi(args[pos])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%q is not a turn number", args[pos])
	}
	return n, nil
}

const chatHelp = `Commands:
  /fill <n>             fill in and submit the form on turn n
  /set <n> <field> <v>  set one form field
  /submit <n>           submit the form on turn n
  /next <n>             advance the guide on turn n
  /step <n> <k>         jump to step k of the guide on turn n
  /open <n>             open the link on turn n
  /new                  start a new conversation
  /quit                 leave`
