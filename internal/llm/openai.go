package llm

import (
	"context"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

const (
	groqBaseURL      = "https://api.groq.com/openai/v1"
	anthropicBaseURL = "https://api.anthropic.com/v1/"
)

// openAIProvider speaks the chat completions protocol. OpenAI, Groq and
// Anthropic's compatibility endpoint all accept it.
type openAIProvider struct {
	name   string
	client *openai.Client
	model  string
}

func newOpenAI(name, apiKey, model, baseURL string, hc *http.Client) *openAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if hc != nil {
		cfg.HTTPClient = hc
	}
	return &openAIProvider{name: name, client: openai.NewClientWithConfig(cfg), model: model}
}

func (p *openAIProvider) Chat(ctx context.Context, messages []Message, system string) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.model,
		Messages:  msgs,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", providerError(p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", providerError(p.name, errEmpty)
	}
	return resp.Choices[0].Message.Content, nil
}
