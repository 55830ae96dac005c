package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

type ollamaProvider struct {
	client *api.Client
	model  string
}

func newOllama(model, baseURL string, hc *http.Client) (*ollamaProvider, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama: bad host %q: %w", baseURL, err)
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &ollamaProvider{client: api.NewClient(u, hc), model: model}, nil
}

func (p *ollamaProvider) Chat(ctx context.Context, messages []Message, system string) (string, error) {
	msgs := make([]api.Message, 0, len(messages)+1)
	msgs = append(msgs, api.Message{Role: "system", Content: system})
	for _, m := range messages {
		msgs = append(msgs, api.Message{Role: m.Role, Content: m.Content})
	}
	stream := false
	var out strings.Builder
	err := p.client.Chat(ctx, &api.ChatRequest{
		Model:    p.model,
		Messages: msgs,
		Stream:   &stream,
	}, func(r api.ChatResponse) error {
		out.WriteString(r.Message.Content)
		return nil
	})
	if err != nil {
		return "", providerError("ollama", err)
	}
	return out.String(), nil
}
