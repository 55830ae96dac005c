// Package cli is the terminal front end: a chat console that renders and
// drives delivered actions, plus commands to author actions and manage
// global API keys.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"actionbot/internal/client"
	"actionbot/internal/config"
	"actionbot/internal/logging"
)

type app struct {
	cfg     config.ClientConfig
	logFile string
	level   string
	logger  *logrus.Logger
	api     *client.Client
	closers []func()
}

func (a *app) init() error {
	f, err := os.OpenFile(a.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	a.closers = append(a.closers, func() { _ = f.Close() })
	a.logger = logging.New(a.level, "text", f)
	a.api = client.New(a.cfg.ServerURL, a.cfg.Token, a.cfg.Timeout)
	a.logger.WithField("server", a.cfg.ServerURL).Info("client started")
	return nil
}

func (a *app) close() {
	for _, c := range a.closers {
		c()
	}
}

func NewRootCommand() *cobra.Command {
	a := &app{cfg: config.LoadClient()}
	root := &cobra.Command{
		Use:           "actionbot",
		Short:         "Chat with action-enabled chatbots and manage their actions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.ServerURL, "server", a.cfg.ServerURL, "server API base URL")
	flags.StringVar(&a.cfg.Token, "token", a.cfg.Token, "bearer token sent with every request")
	flags.StringVar(&a.cfg.StateFile, "state-file", a.cfg.StateFile, "file remembering the last session per chatbot")
	flags.DurationVar(&a.cfg.Timeout, "timeout", a.cfg.Timeout, "request timeout")
	flags.StringVar(&a.logFile, "log-file", "actionbot.log", "where to write logs")
	flags.StringVar(&a.level, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newChatCommand(a),
		newShareCommand(a),
		newActionsCommand(a),
		newKeysCommand(a),
	)
	return root
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// requestTimeout bounds short management calls.
const requestTimeout = 30 * time.Second
