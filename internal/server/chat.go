package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"actionbot/internal/errs"
	"actionbot/internal/types"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		req.SessionID = sessionFromRequest(r)
	}
	resp, err := s.chat.Process(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	SetSessionCookie(w, resp.SessionID, s.cfg.SessionCookieSecure)
	w.Header().Set(SessionHeader, resp.SessionID)
	s.writeJSON(w, http.StatusOK, resp, "Message processed successfully")
}

// handleEndSession forgets the cookie session so the next chat starts a new
// conversation. Stored history is kept.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	ClearSessionCookie(w, s.cfg.SessionCookieSecure)
	s.writeJSON(w, http.StatusOK, nil, "Session ended")
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	chatbotID, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sid := strings.TrimSpace(chi.URLParam(r, "session"))
	if sid == "" {
		s.writeError(w, errs.Invalid("session_id", "is required"))
		return
	}
	msgs, err := s.store.History(r.Context(), chatbotID, sid, 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]types.HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.History())
	}
	s.writeJSON(w, http.StatusOK, out, "Chat history retrieved successfully")
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	chatbotID, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sessions, err := s.store.Sessions(r.Context(), chatbotID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]types.SessionSummary, 0, len(sessions))
	for _, ss := range sessions {
		out = append(out, types.SessionSummary{SessionID: ss.SessionID, LastMessageAt: ss.LastMessageAt})
	}
	s.writeJSON(w, http.StatusOK, out, "Sessions retrieved successfully")
}
