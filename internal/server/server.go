// Package server exposes chatbots, actions, chat and settings over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"actionbot/internal/chat"
	"actionbot/internal/config"
	"actionbot/internal/errs"
	"actionbot/internal/llm"
	"actionbot/internal/logging"
	"actionbot/internal/store"
	"actionbot/internal/types"
)

type Server struct {
	router  *chi.Mux
	cfg     config.Config
	store   store.Store
	chat    *chat.Service
	catalog *llm.Catalog
	logger  *logrus.Logger
	log     *logrus.Entry
}

// Deps are the collaborators a server is built from. LLM defaults to a
// Factory over Catalog.
type Deps struct {
	Store   store.Store
	LLM     llm.Builder
	Catalog *llm.Catalog
	Prompts *chat.Prompts
	Logger  *logrus.Logger
}

func NewServer(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("server: store is required")
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Catalog == nil {
		c, err := llm.LoadCatalog(cfg.ProviderCatalogPath)
		if err != nil {
			return nil, err
		}
		deps.Catalog = c
	}
	if deps.Prompts == nil {
		p, err := chat.LoadPrompts(cfg.PromptSpecPath)
		if err != nil {
			return nil, err
		}
		deps.Prompts = p
	}
	if deps.LLM == nil {
		deps.LLM = llm.NewFactory(deps.Catalog, cfg.OllamaBaseURL, cfg.ChatTimeout)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", SessionHeader},
		ExposedHeaders:   []string{SessionHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:  r,
		cfg:     cfg,
		store:   deps.Store,
		catalog: deps.Catalog,
		logger:  deps.Logger,
		log:     deps.Logger.WithField("component", "server"),
		chat: chat.NewService(deps.Store, deps.LLM, deps.Prompts, chat.Options{
			HistoryLimit: cfg.ChatHistoryLimit,
			Timeout:      cfg.ChatTimeout,
			EnvKeys:      cfg.EnvKeys(),
			Logger:       deps.Logger,
		}),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/chatbots", func(r chi.Router) {
			r.Get("/", s.handleListChatbots)
			r.Post("/", s.handleCreateChatbot)
			r.Get("/providers/list", s.handleProviders)
			r.Get("/share/{token}", s.handleSharedChatbot)
			r.Get("/{id}", s.handleGetChatbot)
			r.Put("/{id}", s.handleUpdateChatbot)
			r.Delete("/{id}", s.handleDeleteChatbot)
		})

		r.Route("/actions", func(r chi.Router) {
			r.Post("/", s.handleCreateAction)
			r.Post("/submit", s.handleSubmitAction)
			r.Get("/submissions/{id}", s.handleSubmissions)
			// {id} is the chatbot on GET and the action on PUT and DELETE.
			r.Get("/{id}", s.handleListActions)
			r.Put("/{id}", s.handleUpdateAction)
			r.Delete("/{id}", s.handleDeleteAction)
		})

		r.Route("/chat", func(r chi.Router) {
			r.Post("/", s.handleChat)
			r.Delete("/session", s.handleEndSession)
			r.Get("/history/{id}/{session}", s.handleHistory)
			r.Get("/sessions/{id}", s.handleSessions)
		})

		r.Route("/settings/api-keys", func(r chi.Router) {
			r.Get("/", s.handleGetAPIKeys)
			r.Put("/", s.handlePutAPIKeys)
			r.Delete("/{provider}", s.handleDeleteAPIKey)
		})
	})
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	h := types.Health{Status: "ok", Database: "ok"}
	if err := s.store.Ping(ctx); err != nil {
		s.log.WithError(err).Warn("health: store ping failed")
		h.Database = "unavailable"
	}
	s.writeJSON(w, http.StatusOK, h, "")
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, data any, msg string) {
	env := types.Envelope{Success: true, Message: msg}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			s.writeError(w, fmt.Errorf("encode response: %w", err))
			return
		}
		env.Data = b
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(env)
}

// writeError maps err onto a status code. Details of unexpected errors stay
// in the log.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	detail := err.Error()
	if code == http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
		detail = "internal server error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(types.Envelope{Success: false, Detail: detail})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrProvider):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, errs.ErrValidation) {
			return err
		}
		return errs.Invalid("body", "invalid JSON: %v", err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, errs.Invalid("id", "%q is not a valid id", raw)
	}
	return n, nil
}
