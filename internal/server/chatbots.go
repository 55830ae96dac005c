package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"actionbot/internal/errs"
	"actionbot/internal/model"
	"actionbot/internal/types"
)

func (s *Server) handleListChatbots(w http.ResponseWriter, r *http.Request) {
	bots, err := s.store.ListChatbots(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]types.Chatbot, 0, len(bots))
	for _, b := range bots {
		defs, err := s.store.ListActions(r.Context(), b.ID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		v := b.View(defs)
		v.Actions = nil
		out = append(out, v)
	}
	s.writeJSON(w, http.StatusOK, out, "Chatbots retrieved successfully")
}

func (s *Server) handleGetChatbot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	bot, err := s.store.Chatbot(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defs, err := s.store.ListActions(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, bot.View(defs), "Chatbot retrieved successfully")
}

func (s *Server) handleCreateChatbot(w http.ResponseWriter, r *http.Request) {
	var req types.ChatbotRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	bot := model.Chatbot{
		LLMProvider: model.DefaultProvider,
		LLMModel:    model.DefaultModel,
		IsActive:    true,
		ShareToken:  uuid.NewString(),
	}
	bot.Apply(req)
	if err := s.validateChatbot(bot); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.store.CreateChatbot(r.Context(), &bot); err != nil {
		s.writeError(w, err)
		return
	}
	s.log.WithField("chatbot_id", bot.ID).Info("chatbot created")
	s.writeJSON(w, http.StatusOK, bot.View(nil), "Chatbot created successfully")
}

func (s *Server) handleUpdateChatbot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req types.ChatbotRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	bot, err := s.store.Chatbot(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	bot.Apply(req)
	if err := s.validateChatbot(bot); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.store.UpdateChatbot(r.Context(), &bot); err != nil {
		s.writeError(w, err)
		return
	}
	defs, err := s.store.ListActions(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, bot.View(defs), "Chatbot updated successfully")
}

func (s *Server) handleDeleteChatbot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.store.DeleteChatbot(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.log.WithField("chatbot_id", id).Info("chatbot deleted")
	s.writeJSON(w, http.StatusOK, nil, "Chatbot deleted successfully")
}

func (s *Server) handleSharedChatbot(w http.ResponseWriter, r *http.Request) {
	bot, err := s.store.ChatbotByShareToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !bot.IsActive {
		s.writeError(w, errs.FromStatus(http.StatusForbidden, "This chatbot is currently inactive"))
		return
	}
	s.writeJSON(w, http.StatusOK, bot.Shared(), "Shared chatbot retrieved successfully")
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.catalog.View(), "Providers retrieved successfully")
}

func (s *Server) validateChatbot(bot model.Chatbot) error {
	if strings.TrimSpace(bot.Name) == "" {
		return errs.Invalid("name", "is required")
	}
	if _, ok := s.catalog.Lookup(bot.LLMProvider); !ok {
		return errs.Invalid("llm_provider", "unsupported provider %q", bot.LLMProvider)
	}
	return nil
}
