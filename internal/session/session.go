// Package session owns one chat conversation: its identity, its ordered
// transcript and the action runtimes bound to assistant turns.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"actionbot/internal/action"
	"actionbot/internal/errs"
	"actionbot/internal/runtime"
	"actionbot/internal/types"
)

const (
	// ErrorText replaces a reply that could not be obtained.
	ErrorText = "Sorry, something went wrong. Please try again."
)

// Backend is what a session needs from the server.
type Backend interface {
	runtime.Submitter
	Chat(ctx context.Context, req types.ChatRequest) (types.ChatResponse, error)
	History(ctx context.Context, chatbotID int64, sessionID string) ([]types.HistoryMessage, error)
}

type Kind int

const (
	UserTurn Kind = iota
	AssistantTurn
	ErrorTurn
	SystemTurn
)

func (k Kind) String() string {
	switch k {
	case UserTurn:
		return "user"
	case AssistantTurn:
		return "assistant"
	case ErrorTurn:
		return "error"
	case SystemTurn:
		return "system"
	}
	return "unknown"
}

// Turn is one transcript entry. Action is only ever set on assistant turns,
// at append time.
type Turn struct {
	Kind   Kind
	Text   string
	Action *action.Instance
}

type Options struct {
	Logger *logrus.Logger
	// Opener is handed to redirect runtimes.
	Opener func(url string) error
	// NewID generates session ids. Defaults to random UUIDs.
	NewID func() string
	// OnAppend observes every appended turn with its index.
	OnAppend func(index int, t Turn)
}

// Session is safe for concurrent use, though at most one send runs at a
// time. Activate and Close bump an epoch; any response or form completion
// started under an older epoch is dropped when it lands.
type Session struct {
	backend Backend
	opts    Options
	log     *logrus.Entry

	mu         sync.Mutex
	chatbotID  int64
	sessionID  string
	transcript []Turn
	runtimes   map[int]runtime.Runtime
	sending    bool
	closed     bool
	epoch      uint64
}

func New(b Backend, opts Options) *Session {
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	return &Session{
		backend:  b,
		opts:     opts,
		log:      logger.WithField("component", "session"),
		runtimes: make(map[int]runtime.Runtime),
		closed:   true,
	}
}

// Activate targets chatbotID with a fresh session id and an empty transcript.
func (s *Session) Activate(chatbotID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked(chatbotID, s.opts.NewID())
	s.log.WithFields(logrus.Fields{"chatbot_id": chatbotID, "session_id": s.sessionID}).Debug("session activated")
	return s.sessionID
}

// Resume targets chatbotID with an existing session id and reloads its
// transcript from the server. On error the session stays active with that id
// and an empty transcript.
func (s *Session) Resume(ctx context.Context, chatbotID int64, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return errs.Invalid("session_id", "must not be empty")
	}
	s.mu.Lock()
	s.resetLocked(chatbotID, sessionID)
	ep := s.epoch
	s.mu.Unlock()

	history, err := s.backend.History(ctx, chatbotID, sessionID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	s.mu.Lock()
	if ep != s.epoch {
		s.mu.Unlock()
		return errs.ErrStale
	}
	var appended []int
	for _, m := range history {
		switch m.Role {
		case "user":
			appended = append(appended, s.appendLocked(Turn{Kind: UserTurn, Text: m.Content}, ep))
		case "assistant":
			appended = append(appended, s.appendLocked(Turn{Kind: AssistantTurn, Text: m.Content, Action: m.ActionData}, ep))
		}
	}
	turns := s.snapshotLocked(appended)
	s.mu.Unlock()

	for i, idx := range appended {
		s.notify(idx, turns[i])
	}
	return nil
}

// Close discards the session. Later sends fail with ErrStale and pending
// results are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.closed = true
	s.sending = false
	s.transcript = nil
	s.runtimes = make(map[int]runtime.Runtime)
}

func (s *Session) resetLocked(chatbotID int64, sessionID string) {
	s.epoch++
	s.chatbotID = chatbotID
	s.sessionID = sessionID
	s.transcript = nil
	s.runtimes = make(map[int]runtime.Runtime)
	s.sending = false
	s.closed = false
}

// Send appends the user turn at once, then calls the backend. The reply or
// an error turn is appended when the call settles. Blank text is rejected
// before anything happens; a send while another is in flight returns ErrBusy.
// A failed call still returns the appended error turn alongside the error.
func (s *Session) Send(ctx context.Context, text string) (Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, errs.Invalid("message", "must not be empty")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Turn{}, errs.ErrStale
	}
	if s.sending {
		s.mu.Unlock()
		return Turn{}, errs.ErrBusy
	}
	s.sending = true
	ep := s.epoch
	user := Turn{Kind: UserTurn, Text: text}
	userIdx := s.appendLocked(user, ep)
	req := types.ChatRequest{ChatbotID: s.chatbotID, Message: text, SessionID: s.sessionID}
	s.mu.Unlock()
	s.notify(userIdx, user)

	resp, err := s.backend.Chat(ctx, req)

	s.mu.Lock()
	if ep != s.epoch {
		s.mu.Unlock()
		s.log.WithField("session_id", req.SessionID).Debug("dropping reply for a torn down session")
		return Turn{}, errs.ErrStale
	}
	s.sending = false
	var turn Turn
	if err != nil {
		turn = Turn{Kind: ErrorTurn, Text: ErrorText}
	} else {
		if resp.SessionID != "" && resp.SessionID != s.sessionID {
			s.log.WithFields(logrus.Fields{"from": s.sessionID, "to": resp.SessionID}).Debug("server rotated session id")
			s.sessionID = resp.SessionID
		}
		turn = Turn{Kind: AssistantTurn, Text: resp.Response, Action: resp.Action}
	}
	idx := s.appendLocked(turn, ep)
	s.mu.Unlock()
	s.notify(idx, turn)

	if err != nil {
		s.log.WithError(err).WithField("chatbot_id", req.ChatbotID).Warn("chat request failed")
		return turn, fmt.Errorf("send message: %w", err)
	}
	return turn, nil
}

// appendLocked appends t and binds a runtime when t carries an action.
func (s *Session) appendLocked(t Turn, ep uint64) int {
	idx := len(s.transcript)
	s.transcript = append(s.transcript, t)
	if t.Kind == AssistantTurn && t.Action != nil {
		if rt := runtime.New(t.Action, runtime.Options{
			ChatbotID:  s.chatbotID,
			SessionID:  s.SessionID,
			Submitter:  s.backend,
			OnComplete: s.completion(ep),
			Opener:     s.opts.Opener,
		}); rt != nil {
			s.runtimes[idx] = rt
		}
	}
	return idx
}

// completion appends the system turn for a finished form, unless the
// session moved on since the form was bound.
func (s *Session) completion(ep uint64) func(types.SubmitResult) {
	return func(res types.SubmitResult) {
		s.mu.Lock()
		if ep != s.epoch {
			s.mu.Unlock()
			return
		}
		text := "Action completed."
		if msg := res.Message(); msg != "" {
			text = "Action completed: " + msg
		}
		turn := Turn{Kind: SystemTurn, Text: text}
		idx := s.appendLocked(turn, ep)
		s.mu.Unlock()
		s.notify(idx, turn)
	}
}

func (s *Session) notify(idx int, t Turn) {
	if s.opts.OnAppend != nil {
		s.opts.OnAppend(idx, t)
	}
}

func (s *Session) snapshotLocked(idx []int) []Turn {
	out := make([]Turn, len(idx))
	for i, j := range idx {
		out[i] = s.transcript[j]
	}
	return out
}

// Transcript returns a copy of the entries in display order.
func (s *Session) Transcript() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.transcript...)
}

// Runtime returns the runtime bound to turn i, or nil.
func (s *Session) Runtime(i int) runtime.Runtime {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runtimes[i]
}

func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

func (s *Session) ChatbotID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatbotID
}

func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}
