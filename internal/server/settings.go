package server

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"actionbot/internal/credential"
	"actionbot/internal/types"
)

func (s *Server) handleGetAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.store.APIKeys(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := credential.Set{}
	for provider, key := range keys {
		if key != "" {
			out[provider] = credential.StatusOf(key)
		}
	}
	s.writeJSON(w, http.StatusOK, out, "API keys retrieved")
}

// handlePutAPIKeys writes global keys in one batch: all of them or none.
// Providers without a key requirement are skipped and an empty value
// removes the stored key.
func (s *Server) handlePutAPIKeys(w http.ResponseWriter, r *http.Request) {
	var req types.APIKeysRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	allowed := map[string]bool{}
	for _, p := range s.catalog.KeyedProviders() {
		allowed[p] = true
	}
	batch := map[string]string{}
	for provider, key := range req.Keys {
		provider = strings.ToLower(strings.TrimSpace(provider))
		if allowed[provider] {
			batch[provider] = strings.TrimSpace(key)
		}
	}
	if err := s.store.SaveAPIKeys(r.Context(), batch); err != nil {
		s.writeError(w, err)
		return
	}
	updated := make([]string, 0, len(batch))
	for provider, key := range batch {
		updated = append(updated, provider)
		s.log.WithField("provider", provider).WithField("key", credential.Mask(key)).Info("global api key updated")
	}
	sort.Strings(updated)
	s.writeJSON(w, http.StatusOK, map[string][]string{"updated": updated}, "API keys updated successfully")
}

func (s *Server) handleDeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	provider := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "provider")))
	if err := s.store.DeleteAPIKey(r.Context(), provider); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nil, "API key for "+provider+" deleted")
}
