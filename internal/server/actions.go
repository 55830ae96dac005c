package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"actionbot/internal/action"
	"actionbot/internal/errs"
	"actionbot/internal/model"
	"actionbot/internal/types"
)

// readDefinition decodes an action body. is_active defaults to true when
// the body leaves it out.
func readDefinition(r *http.Request) (action.Definition, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return action.Definition{}, errs.Invalid("body", "unreadable: %v", err)
	}
	var d action.Definition
	if err := json.Unmarshal(body, &d); err != nil {
		if errors.Is(err, errs.ErrValidation) {
			return action.Definition{}, err
		}
		return action.Definition{}, errs.Invalid("body", "invalid JSON: %v", err)
	}
	var flags struct {
		IsActive *bool `json:"is_active"`
	}
	_ = json.NewDecoder(bytes.NewReader(body)).Decode(&flags)
	d.IsActive = flags.IsActive == nil || *flags.IsActive
	return d, nil
}

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	chatbotID, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := s.store.Chatbot(r.Context(), chatbotID); err != nil {
		s.writeError(w, err)
		return
	}
	defs, err := s.store.ListActions(r.Context(), chatbotID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, defs, "Actions retrieved successfully")
}

func (s *Server) handleCreateAction(w http.ResponseWriter, r *http.Request) {
	d, err := readDefinition(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	d.ID = 0
	if err := d.Validate(); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.store.CreateAction(r.Context(), &d); err != nil {
		s.writeError(w, err)
		return
	}
	s.log.WithField("action_id", d.ID).WithField("chatbot_id", d.ChatbotID).Info("action created")
	s.writeJSON(w, http.StatusOK, d, "Action created successfully")
}

func (s *Server) handleUpdateAction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	d, err := readDefinition(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	existing, err := s.store.Action(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	d.ID = id
	d.ChatbotID = existing.ChatbotID
	if err := d.Validate(); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.store.UpdateAction(r.Context(), &d); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d, "Action updated successfully")
}

func (s *Server) handleDeleteAction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.store.DeleteAction(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nil, "Action deleted successfully")
}

func (s *Server) handleSubmitAction(w http.ResponseWriter, r *http.Request) {
	var req types.SubmitActionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.ActionID <= 0 {
		s.writeError(w, errs.Invalid("action_id", "is required"))
		return
	}
	def, err := s.store.Action(r.Context(), req.ActionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if def.ChatbotID != req.ChatbotID {
		s.writeError(w, errs.FromStatus(http.StatusNotFound, "Action not found"))
		return
	}
	if req.FormData == nil {
		req.FormData = map[string]string{}
	}
	data, err := json.Marshal(req.FormData)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sub := model.Submission{
		ChatbotID: req.ChatbotID,
		ActionID:  req.ActionID,
		SessionID: req.SessionID,
		FormData:  data,
		Status:    model.StatusCompleted,
	}
	if err := s.store.CreateSubmission(r.Context(), &sub); err != nil {
		s.writeError(w, err)
		return
	}
	s.log.WithField("submission_id", sub.ID).WithField("action_id", sub.ActionID).Info("action submitted")
	s.writeJSON(w, http.StatusOK, types.SubmitResult{
		"id":        sub.ID,
		"status":    sub.Status,
		"form_data": req.FormData,
		"message":   "Action submitted successfully",
	}, "Action submitted successfully")
}

func (s *Server) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	chatbotID, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	subs, err := s.store.ListSubmissions(r.Context(), chatbotID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]types.Submission, 0, len(subs))
	for _, sub := range subs {
		out = append(out, sub.View())
	}
	s.writeJSON(w, http.StatusOK, out, "Submissions retrieved successfully")
}
