// Package chat answers a chat turn for a chatbot: it assembles context,
// resolves credentials, calls the model, attaches at most one action and
// persists the exchange.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"actionbot/internal/action"
	"actionbot/internal/credential"
	"actionbot/internal/errs"
	"actionbot/internal/llm"
	"actionbot/internal/model"
	"actionbot/internal/store"
	"actionbot/internal/types"
)

type Options struct {
	// HistoryLimit caps the prior turns sent as context.
	HistoryLimit int
	// Timeout bounds one provider call. Zero means no extra bound.
	Timeout time.Duration
	// EnvKeys are the deployment level keys by provider id.
	EnvKeys map[string]string
	NewID   func() string
	Logger  *logrus.Logger
}

type Service struct {
	store   store.Store
	llm     llm.Builder
	prompts *Prompts
	opts    Options
	log     *logrus.Entry
}

func NewService(st store.Store, b llm.Builder, prompts *Prompts, opts Options) *Service {
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 20
	}
	return &Service{
		store:   st,
		llm:     b,
		prompts: prompts,
		opts:    opts,
		log:     opts.Logger.WithField("component", "chat"),
	}
}

// Process answers one user message. Nothing is persisted unless the
// provider answers.
func (s *Service) Process(ctx context.Context, req types.ChatRequest) (types.ChatResponse, error) {
	if req.ChatbotID <= 0 {
		return types.ChatResponse{}, errs.Invalid("chatbot_id", "is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return types.ChatResponse{}, errs.Invalid("message", "must not be empty")
	}
	sid := strings.TrimSpace(req.SessionID)
	if sid == "" {
		sid = s.opts.NewID()
	}

	bot, err := s.store.Chatbot(ctx, req.ChatbotID)
	if err != nil {
		return types.ChatResponse{}, err
	}
	if !bot.IsActive {
		return types.ChatResponse{}, fmt.Errorf("chatbot %d is not active: %w", bot.ID, errs.ErrForbidden)
	}

	history, err := s.store.History(ctx, bot.ID, sid, s.opts.HistoryLimit)
	if err != nil {
		return types.ChatResponse{}, err
	}
	defs, err := s.store.ListActions(ctx, bot.ID)
	if err != nil {
		return types.ChatResponse{}, err
	}
	active := action.Active(defs)

	system, err := s.prompts.Render(bot, active)
	if err != nil {
		return types.ChatResponse{}, err
	}

	provider, err := s.provider(ctx, bot)
	if err != nil {
		return types.ChatResponse{}, err
	}

	msgs := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: model.RoleUser, Content: req.Message})

	callCtx := ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	start := time.Now()
	raw, err := provider.Chat(callCtx, msgs, system)
	if err != nil {
		s.log.WithFields(logrus.Fields{"chatbot_id": bot.ID, "provider": bot.LLMProvider}).WithError(err).Warn("provider call failed")
		return types.ChatResponse{}, err
	}

	text, body := SplitAction(raw)
	inst := Resolve(body, active)
	if inst == nil {
		if d := action.Match(active, req.Message); d != nil {
			inst = action.NewInstance(*d)
		}
	}

	user := &model.Message{ChatbotID: bot.ID, SessionID: sid, Role: model.RoleUser, Content: req.Message}
	reply := &model.Message{ChatbotID: bot.ID, SessionID: sid, Role: model.RoleAssistant, Content: text}
	if err := reply.SetAction(inst); err != nil {
		return types.ChatResponse{}, fmt.Errorf("encode action: %w", err)
	}
	if err := s.store.AppendMessages(ctx, user, reply); err != nil {
		return types.ChatResponse{}, err
	}

	fields := logrus.Fields{
		"chatbot_id": bot.ID,
		"session_id": sid,
		"provider":   bot.LLMProvider,
		"elapsed":    time.Since(start).String(),
	}
	if inst != nil {
		fields["action_id"] = inst.ActionID
	}
	s.log.WithFields(fields).Debug("chat answered")

	return types.ChatResponse{SessionID: sid, Response: text, Action: inst}, nil
}

// provider resolves the credential for the chatbot's provider and builds a
// client for it.
func (s *Service) provider(ctx context.Context, bot model.Chatbot) (llm.Provider, error) {
	name := strings.ToLower(strings.TrimSpace(bot.LLMProvider))
	if name == "" {
		name = model.DefaultProvider
	}
	global, err := s.store.APIKey(ctx, name)
	if err != nil {
		return nil, err
	}
	key, tier := credential.Resolve(bot.APIKey, global, s.opts.EnvKeys[name])
	s.log.WithFields(logrus.Fields{"chatbot_id": bot.ID, "provider": name, "tier": tier.String()}).Debug("credential resolved")
	p, err := s.llm.New(ctx, name, bot.LLMModel, key)
	if err != nil {
		return nil, err
	}
	return p, nil
}
