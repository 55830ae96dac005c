package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"actionbot/internal/errs"
	"actionbot/internal/runtime"
	"actionbot/internal/session"
)

func newChatCommand(a *app) *cobra.Command {
	var resume bool
	cmd := &cobra.Command{
		Use:   "chat <chatbot-id>",
		Short: "Chat with a chatbot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("%q is not a chatbot id", args[0])
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			bot, err := a.api.Chatbot(ctx, id)
			cancel()
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), a, id, bot.Name, resume)
		},
	}
	cmd.Flags().BoolVar(&resume, "resume", false, "continue the last conversation with this chatbot")
	return cmd
}

func newShareCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "share <token>",
		Short: "Open a shared chatbot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			bot, err := a.api.Shared(ctx, args[0])
			cancel()
			if err != nil {
				a.logger.WithError(err).Warn("share token lookup failed")
				fmt.Fprintln(cmd.OutOrStdout(), SharedError(err))
				return nil
			}
			if bot.Description != "" {
				fmt.Fprintln(cmd.OutOrStdout(), bot.Description)
			}
			return runChat(cmd.Context(), a, bot.ID, bot.Name, false)
		},
	}
}

type chatLoop struct {
	a     *app
	con   *Console
	sess  *session.Session
	files *session.FileStore
	// replaying is set while a resumed transcript is loaded, so the user's
	// own turns are echoed too.
	replaying bool
}

func runChat(ctx context.Context, a *app, chatbotID int64, title string, resume bool) error {
	con, err := NewConsole("you> ")
	if err != nil {
		return err
	}
	defer con.Close()

	l := &chatLoop{a: a, con: con, files: session.NewFileStore(a.cfg.StateFile)}
	l.sess = session.New(a.api, session.Options{
		Logger: a.logger,
		Opener: openURL,
		OnAppend: func(idx int, t session.Turn) {
			if t.Kind == session.UserTurn && !l.replaying {
				return
			}
			con.Println(RenderTurn(idx, t, l.sess.Runtime(idx)))
		},
	})
	defer l.sess.Close()

	con.Println(fmt.Sprintf("Chatting with %s. Type /help for commands.", title))
	l.start(ctx, chatbotID, resume)

	for {
		line, err := con.ReadLine()
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		if name, args, ok := parseCommand(line); ok {
			if name == "quit" || name == "exit" {
				return nil
			}
			if err := l.command(ctx, name, args); err != nil {
				con.Println("! " + err.Error())
			}
			continue
		}
		l.send(ctx, line)
	}
}

func (l *chatLoop) start(ctx context.Context, chatbotID int64, resume bool) {
	if resume {
		sid, err := l.files.Last(chatbotID)
		if err == nil && sid != "" {
			l.replaying = true
			err = l.sess.Resume(ctx, chatbotID, sid)
			l.replaying = false
			if err == nil {
				l.con.Println(fmt.Sprintf("(resumed %s)", sid))
				return
			}
			l.a.logger.WithError(err).Warn("resume failed")
			l.con.Println("Could not load the previous conversation, starting a new one.")
		}
	}
	l.sess.Activate(chatbotID)
}

func (l *chatLoop) send(ctx context.Context, text string) {
	if _, err := l.sess.Send(ctx, text); err != nil {
		switch {
		case errors.Is(err, errs.ErrBusy):
			l.con.Println("! still waiting for the previous reply")
		case errors.Is(err, errs.ErrStale):
		default:
			l.a.logger.WithError(err).Warn("send failed")
		}
		return
	}
	if err := l.files.Remember(l.sess.ChatbotID(), l.sess.SessionID()); err != nil {
		l.a.logger.WithError(err).Warn("could not remember session")
	}
}

func (l *chatLoop) command(ctx context.Context, name string, args []string) error {
	switch name {
	case "help", "":
		l.con.Println(chatHelp)
		return nil
	case "new":
		id := l.sess.ChatbotID()
		_ = l.files.Forget(id)
		l.sess.Activate(id)
		l.con.Println("(new conversation)")
		return nil
	}

	idx, err := parseIndex(args, 0)
	if err != nil {
		return err
	}
	rt := l.sess.Runtime(idx)
	if rt == nil {
		return fmt.Errorf("turn %d has no action", idx)
	}

	switch name {
	case "fill":
		form, ok := rt.(*runtime.Form)
		if !ok {
			return fmt.Errorf("turn %d is not a form", idx)
		}
		return l.fill(ctx, idx, form)
	case "set":
		form, ok := rt.(*runtime.Form)
		if !ok {
			return fmt.Errorf("turn %d is not a form", idx)
		}
		if len(args) < 2 {
			return fmt.Errorf("usage: /set <n> <field> <value>")
		}
		if err := form.Set(args[1], strings.Join(args[2:], " ")); err != nil {
			return err
		}
		l.con.Println(RenderRuntime(idx, form))
		return nil
	case "submit":
		form, ok := rt.(*runtime.Form)
		if !ok {
			return fmt.Errorf("turn %d is not a form", idx)
		}
		return l.submit(ctx, idx, form)
	case "next":
		guide, ok := rt.(*runtime.Guide)
		if !ok {
			return fmt.Errorf("turn %d is not a guide", idx)
		}
		guide.Next()
		l.con.Println(RenderRuntime(idx, guide))
		return nil
	case "step":
		guide, ok := rt.(*runtime.Guide)
		if !ok {
			return fmt.Errorf("turn %d is not a guide", idx)
		}
		k, err := parseIndex(args, 1)
		if err != nil {
			return err
		}
		guide.Select(k - 1)
		l.con.Println(RenderRuntime(idx, guide))
		return nil
	case "open":
		r, ok := rt.(*runtime.Redirect)
		if !ok {
			return fmt.Errorf("turn %d is not a link", idx)
		}
		return r.Open()
	}
	return fmt.Errorf("unknown command /%s", name)
}

// fill walks the fields, then submits. An empty answer keeps the current
// value.
func (l *chatLoop) fill(ctx context.Context, idx int, form *runtime.Form) error {
	if form.State() != runtime.Filling {
		return fmt.Errorf("this form was already %s", form.State())
	}
	for _, field := range form.Fields() {
		prompt := field.Label
		if len(field.Options) > 0 {
			prompt += " (" + strings.Join(field.Options, "/") + ")"
		}
		if cur := form.Value(field.Name); cur != "" {
			prompt += " [" + cur + "]"
		}
		for {
			ans, err := l.con.Ask(prompt + ": ")
			if err != nil {
				return fmt.Errorf("cancelled")
			}
			if ans == "" {
				break
			}
			if err := form.Set(field.Name, ans); err != nil {
				l.con.Println("! " + err.Error())
				continue
			}
			break
		}
	}
	return l.submit(ctx, idx, form)
}

func (l *chatLoop) submit(ctx context.Context, idx int, form *runtime.Form) error {
	_, err := form.Submit(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errs.ErrValidation):
		return err
	default:
		l.a.logger.WithError(err).WithField("turn", idx).Warn("form submission failed")
		return fmt.Errorf("submission failed, please try again")
	}
}
