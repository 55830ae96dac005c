package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"actionbot/internal/credential"
	"actionbot/internal/errs"
)

func newKeysCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage global provider API keys",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Show which providers have a global key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
				defer cancel()
				set, err := credential.NewCache(a.api).Get(ctx)
				if err != nil {
					return err
				}
				return printKeys(cmd, set)
			},
		},
		&cobra.Command{
			Use:   "set <provider> <key>",
			Short: "Save a global key; an empty key removes it",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
				defer cancel()
				set, err := credential.NewCache(a.api).Save(ctx, map[string]string{args[0]: args[1]})
				if err != nil {
					return err
				}
				a.logger.WithField("provider", args[0]).Info("global key saved")
				return printKeys(cmd, set)
			},
		},
		newKeysDeleteCommand(a),
		&cobra.Command{
			Use:   "status <chatbot-id>",
			Short: "Explain which key a chatbot's provider will use",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0], "chatbot")
				if err != nil {
					return err
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
				defer cancel()
				bot, err := a.api.Chatbot(ctx, id)
				if err != nil {
					return err
				}
				set, err := credential.NewCache(a.api).Get(ctx)
				if err != nil {
					return err
				}
				st := keyStatus(bot.APIKey.IsSet, set.IsSet(bot.LLMProvider))
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %s\n", bot.Name, bot.LLMProvider, st.Message)
				return nil
			},
		},
	)
	return cmd
}

// keyStatus reports the chatbot's key tier. The server only exposes whether
// a chatbot key exists, so a placeholder stands in for the draft.
func keyStatus(chatbotKeySet, globalIsSet bool) credential.Status {
	draft := ""
	if chatbotKeySet {
		draft = "set"
	}
	return credential.Display(draft, globalIsSet)
}

func newKeysDeleteCommand(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <provider>",
		Short: "Remove a global key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmer(yes, fmt.Sprintf("Delete the global %s key?", args[0]))() {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			set, err := credential.NewCache(a.api).Delete(ctx, args[0])
			if errors.Is(err, errs.ErrNotFound) {
				return fmt.Errorf("no global key for %s", args[0])
			}
			if err != nil {
				return err
			}
			return printKeys(cmd, set)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func printKeys(cmd *cobra.Command, set credential.Set) error {
	providers := make([]string, 0, len(set))
	for p := range set {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tKEY")
	for _, p := range providers {
		k := "not set"
		if set[p].IsSet {
			k = set[p].MaskedKey
		}
		fmt.Fprintf(tw, "%s\t%s\n", p, k)
	}
	return tw.Flush()
}
