// Package client is the typed HTTP client for the actionbot server API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"actionbot/internal/action"
	"actionbot/internal/credential"
	"actionbot/internal/errs"
	"actionbot/internal/types"
)

// Client talks to one server. Non-2xx answers come back as *errs.StatusError
// (matching ErrNotFound, ErrForbidden, ErrValidation or ErrNetwork) and
// transport failures match ErrNetwork.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New builds a client for baseURL, e.g. http://localhost:8080/api. A
// non-empty token is sent as a bearer token on every request.
func New(baseURL, token string, timeout time.Duration) *Client {
	hc := &http.Client{}
	if token != "" {
		hc = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	hc.Timeout = timeout
	return &Client{httpClient: hc, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", errs.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s %s: %v", errs.ErrNetwork, method, path, err)
	}
	var env types.Envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Detail
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return errs.FromStatus(resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: decode %s %s: %v", errs.ErrNetwork, method, path, decodeErr)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decode %s %s data: %v", errs.ErrNetwork, method, path, err)
	}
	return nil
}

func id(v int64) string { return strconv.FormatInt(v, 10) }

func (c *Client) Health(ctx context.Context) (types.Health, error) {
	var h types.Health
	err := c.do(ctx, http.MethodGet, "/health", nil, &h)
	return h, err
}

// Chat

func (c *Client) Chat(ctx context.Context, req types.ChatRequest) (types.ChatResponse, error) {
	var out types.ChatResponse
	err := c.do(ctx, http.MethodPost, "/chat", req, &out)
	return out, err
}

func (c *Client) History(ctx context.Context, chatbotID int64, sessionID string) ([]types.HistoryMessage, error) {
	var out []types.HistoryMessage
	err := c.do(ctx, http.MethodGet, "/chat/history/"+id(chatbotID)+"/"+url.PathEscape(sessionID), nil, &out)
	return out, err
}

func (c *Client) Sessions(ctx context.Context, chatbotID int64) ([]types.SessionSummary, error) {
	var out []types.SessionSummary
	err := c.do(ctx, http.MethodGet, "/chat/sessions/"+id(chatbotID), nil, &out)
	return out, err
}

// Actions

func (c *Client) Actions(ctx context.Context, chatbotID int64) ([]action.Definition, error) {
	var out []action.Definition
	err := c.do(ctx, http.MethodGet, "/actions/"+id(chatbotID), nil, &out)
	return out, err
}

func (c *Client) CreateAction(ctx context.Context, d action.Definition) (action.Definition, error) {
	var out action.Definition
	err := c.do(ctx, http.MethodPost, "/actions", d, &out)
	return out, err
}

func (c *Client) UpdateAction(ctx context.Context, d action.Definition) (action.Definition, error) {
	var out action.Definition
	err := c.do(ctx, http.MethodPut, "/actions/"+id(d.ID), d, &out)
	return out, err
}

func (c *Client) DeleteAction(ctx context.Context, actionID int64) error {
	return c.do(ctx, http.MethodDelete, "/actions/"+id(actionID), nil, nil)
}

func (c *Client) SubmitAction(ctx context.Context, req types.SubmitActionRequest) (types.SubmitResult, error) {
	var out types.SubmitResult
	err := c.do(ctx, http.MethodPost, "/actions/submit", req, &out)
	return out, err
}

func (c *Client) Submissions(ctx context.Context, chatbotID int64) ([]types.Submission, error) {
	var out []types.Submission
	err := c.do(ctx, http.MethodGet, "/actions/submissions/"+id(chatbotID), nil, &out)
	return out, err
}

// Chatbots

func (c *Client) Chatbots(ctx context.Context) ([]types.Chatbot, error) {
	var out []types.Chatbot
	err := c.do(ctx, http.MethodGet, "/chatbots", nil, &out)
	return out, err
}

func (c *Client) Chatbot(ctx context.Context, chatbotID int64) (types.Chatbot, error) {
	var out types.Chatbot
	err := c.do(ctx, http.MethodGet, "/chatbots/"+id(chatbotID), nil, &out)
	return out, err
}

func (c *Client) CreateChatbot(ctx context.Context, req types.ChatbotRequest) (types.Chatbot, error) {
	var out types.Chatbot
	err := c.do(ctx, http.MethodPost, "/chatbots", req, &out)
	return out, err
}

func (c *Client) UpdateChatbot(ctx context.Context, chatbotID int64, req types.ChatbotRequest) (types.Chatbot, error) {
	var out types.Chatbot
	err := c.do(ctx, http.MethodPut, "/chatbots/"+id(chatbotID), req, &out)
	return out, err
}

func (c *Client) DeleteChatbot(ctx context.Context, chatbotID int64) error {
	return c.do(ctx, http.MethodDelete, "/chatbots/"+id(chatbotID), nil, nil)
}

// Shared resolves a public share token.
func (c *Client) Shared(ctx context.Context, token string) (types.SharedChatbot, error) {
	var out types.SharedChatbot
	err := c.do(ctx, http.MethodGet, "/chatbots/share/"+url.PathEscape(token), nil, &out)
	return out, err
}

func (c *Client) Providers(ctx context.Context) (map[string]types.Provider, error) {
	var out map[string]types.Provider
	err := c.do(ctx, http.MethodGet, "/chatbots/providers/list", nil, &out)
	return out, err
}

// Settings

func (c *Client) APIKeys(ctx context.Context) (credential.Set, error) {
	out := credential.Set{}
	err := c.do(ctx, http.MethodGet, "/settings/api-keys", nil, &out)
	return out, err
}

func (c *Client) SaveAPIKeys(ctx context.Context, keys map[string]string) error {
	return c.do(ctx, http.MethodPut, "/settings/api-keys", types.APIKeysRequest{Keys: keys}, nil)
}

func (c *Client) DeleteAPIKey(ctx context.Context, provider string) error {
	return c.do(ctx, http.MethodDelete, "/settings/api-keys/"+url.PathEscape(provider), nil, nil)
}
