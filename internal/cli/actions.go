package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"actionbot/internal/action"
	"actionbot/internal/editor"
	"actionbot/internal/errs"
)

type actionFlags struct {
	name        string
	typ         string
	keywords    string
	description string
	config      string
	inactive    bool
}

func (f *actionFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.name, "name", "", "action name")
	fl.StringVar(&f.typ, "type", "", "SHOW_FORM, SHOW_GUIDE, REDIRECT or NOTIFY")
	fl.StringVar(&f.keywords, "keywords", "", "comma separated trigger keywords")
	fl.StringVar(&f.description, "description", "", "what the action is for")
	fl.StringVar(&f.config, "config", "", "config JSON, or @file to read it from a file")
	fl.BoolVar(&f.inactive, "inactive", false, "save the action as inactive")
}

// apply copies the flags that were given onto d.
func (f *actionFlags) apply(cmd *cobra.Command, d *editor.Draft) error {
	changed := cmd.Flags().Changed
	if changed("name") {
		d.Name = f.name
	}
	if changed("keywords") {
		d.Keywords = f.keywords
	}
	if changed("description") {
		d.Description = f.description
	}
	if changed("inactive") {
		d.IsActive = !f.inactive
	}
	if changed("type") {
		if err := d.SetType(action.Type(strings.ToUpper(f.typ))); err != nil {
			return err
		}
	}
	if changed("config") {
		raw := f.config
		if strings.HasPrefix(raw, "@") {
			b, err := os.ReadFile(raw[1:])
			if err != nil {
				return fmt.Errorf("read config: %w", err)
			}
			raw = string(b)
		}
		if !d.SetRawConfig(raw) {
			return errs.Invalid("config", "is not a valid %s config", d.Type())
		}
	}
	return nil
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%q is not a %s id", s, what)
	}
	return id, nil
}

func newActionsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "Author the actions of a chatbot",
	}
	cmd.AddCommand(
		newActionsListCommand(a),
		newActionsCreateCommand(a),
		newActionsUpdateCommand(a),
		newActionsDeleteCommand(a),
	)
	return cmd
}

func newActionsListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <chatbot-id>",
		Short: "List a chatbot's actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "chatbot")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			defs, err := a.api.Actions(ctx, id)
			if err != nil {
				return err
			}
			if len(defs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No actions configured.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTYPE\tACTIVE\tKEYWORDS")
			for _, d := range defs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n", d.ID, d.Name, d.Type, d.IsActive, action.JoinKeywords(d.TriggerKeywords))
			}
			return tw.Flush()
		},
	}
}

func newActionsCreateCommand(a *app) *cobra.Command {
	var f actionFlags
	cmd := &cobra.Command{
		Use:   "create <chatbot-id>",
		Short: "Create an action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "chatbot")
			if err != nil {
				return err
			}
			d := editor.NewDraft(id)
			if err := f.apply(cmd, d); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			saved, err := editor.New(a.api, a.logger).Save(ctx, d)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created action %d (%s).\n", saved.ID, saved.Type)
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func newActionsUpdateCommand(a *app) *cobra.Command {
	var f actionFlags
	cmd := &cobra.Command{
		Use:   "update <chatbot-id> <action-id>",
		Short: "Change an action; flags not given keep their value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatbotID, err := parseID(args[0], "chatbot")
			if err != nil {
				return err
			}
			actionID, err := parseID(args[1], "action")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			defs, err := a.api.Actions(ctx, chatbotID)
			if err != nil {
				return err
			}
			var d *editor.Draft
			for _, def := range defs {
				if def.ID == actionID {
					d = editor.EditDraft(def)
				}
			}
			if d == nil {
				return fmt.Errorf("chatbot %d has no action %d: %w", chatbotID, actionID, errs.ErrNotFound)
			}
			if err := f.apply(cmd, d); err != nil {
				return err
			}
			saved, err := editor.New(a.api, a.logger).Save(ctx, d)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated action %d.\n", saved.ID)
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func newActionsDeleteCommand(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <action-id>",
		Short: "Delete an action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "action")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			err = editor.New(a.api, a.logger).Delete(ctx, id, confirmer(yes, fmt.Sprintf("Delete action %d?", id)))
			if errors.Is(err, errs.ErrNotConfirmed) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted action %d.\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// confirmer asks on the terminal unless yes was given.
func confirmer(yes bool, question string) func() bool {
	return func() bool {
		if yes {
			return true
		}
		con, err := NewConsole("")
		if err != nil {
			return false
		}
		defer con.Close()
		return con.Confirm(question)
	}
}
