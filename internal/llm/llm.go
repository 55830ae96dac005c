// Package llm dispatches a conversation to the chatbot's configured model
// provider.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"actionbot/internal/errs"
)

const maxTokens = 4096

// Message is one prior turn. Role is "user" or "assistant".
type Message struct {
	Role    string
	Content string
}

// Provider answers a conversation under a system prompt.
type Provider interface {
	Chat(ctx context.Context, messages []Message, system string) (string, error)
}

// Builder creates providers. The chat service depends on this rather than
// on Factory so tests can swap in fakes.
type Builder interface {
	New(ctx context.Context, provider, model, apiKey string) (Provider, error)
}

// Factory builds providers listed in its catalog.
type Factory struct {
	Catalog    *Catalog
	OllamaURL  string
	HTTPClient *http.Client
	// BaseURLs overrides the endpoint per provider id.
	BaseURLs map[string]string
}

func NewFactory(catalog *Catalog, ollamaURL string, timeout time.Duration) *Factory {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Factory{
		Catalog:    catalog,
		OllamaURL:  ollamaURL,
		HTTPClient: &http.Client{Timeout: timeout},
		BaseURLs:   map[string]string{},
	}
}

func (f *Factory) New(ctx context.Context, provider, model, apiKey string) (Provider, error) {
	id := strings.ToLower(strings.TrimSpace(provider))
	info, ok := f.Catalog.Lookup(id)
	if !ok {
		return nil, errs.Invalid("llm_provider", "unsupported provider %q", provider)
	}
	if model == "" && len(info.Models) > 0 {
		model = info.Models[0]
	}
	if info.RequiresAPIKey && strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: no API key configured for %s", errs.ErrProvider, id)
	}
	base := f.BaseURLs[id]
	switch id {
	case "openai":
		return newOpenAI(id, apiKey, model, base, f.HTTPClient), nil
	case "groq":
		if base == "" {
			base = groqBaseURL
		}
		return newOpenAI(id, apiKey, model, base, f.HTTPClient), nil
	case "claude":
		if base == "" {
			base = anthropicBaseURL
		}
		return newOpenAI(id, apiKey, model, base, f.HTTPClient), nil
	case "gemini":
		return newGemini(ctx, apiKey, model, base, f.HTTPClient)
	case "ollama":
		if base == "" {
			base = f.OllamaURL
		}
		return newOllama(model, base, f.HTTPClient)
	}
	return nil, errs.Invalid("llm_provider", "no client for provider %q", id)
}

func providerError(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", errs.ErrProvider, name, err)
}
