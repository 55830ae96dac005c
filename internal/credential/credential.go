// Package credential resolves which API key configures an LLM call and how
// the configured keys are shown to an operator.
package credential

import "strings"

// Tier identifies where the effective key came from.
type Tier int

const (
	TierNone Tier = iota
	TierChatbot
	TierGlobal
	TierEnvironment
)

func (t Tier) String() string {
	switch t {
	case TierChatbot:
		return "chatbot"
	case TierGlobal:
		return "global"
	case TierEnvironment:
		return "environment"
	}
	return "none"
}

// Resolve applies the fixed precedence: chatbot key, then global key, then the
// deployment environment key. Blank keys count as absent.
func Resolve(chatbotKey, globalKey, envKey string) (string, Tier) {
	if k := strings.TrimSpace(chatbotKey); k != "" {
		return k, TierChatbot
	}
	if k := strings.TrimSpace(globalKey); k != "" {
		return k, TierGlobal
	}
	if k := strings.TrimSpace(envKey); k != "" {
		return k, TierEnvironment
	}
	return "", TierNone
}

// Mask hides all but the edges of a secret.
func Mask(key string) string {
	if len(key) > 12 {
		return key[:8] + "..." + key[len(key)-4:]
	}
	return "****"
}

// KeyStatus is the only view of a saved key that ever leaves the server.
type KeyStatus struct {
	IsSet     bool   `json:"is_set"`
	MaskedKey string `json:"masked_key,omitempty"`
}

// StatusOf builds the view of key.
func StatusOf(key string) KeyStatus {
	if strings.TrimSpace(key) == "" {
		return KeyStatus{}
	}
	return KeyStatus{IsSet: true, MaskedKey: Mask(key)}
}

// Set maps a provider name to the status of its global key.
type Set map[string]KeyStatus

// IsSet reports whether provider has a global key.
func (s Set) IsSet(provider string) bool { return s[provider].IsSet }

func (s Set) clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Status is what an LLM selector shows for the key of one chatbot. The
// client never sees the environment tier, so it is not represented.
type Status struct {
	Tier    Tier
	Message string
}

const (
	MsgBotKey    = "Using a bot-specific API key."
	MsgGlobalKey = "Global key set. Leave empty to use it."
	MsgNoKey     = "No API key configured for this provider."
)

// Display derives the selector message from the chatbot key draft and
// whether a global key is saved for the provider.
func Display(chatbotKey string, globalIsSet bool) Status {
	switch {
	case strings.TrimSpace(chatbotKey) != "":
		return Status{Tier: TierChatbot, Message: MsgBotKey}
	case globalIsSet:
		return Status{Tier: TierGlobal, Message: MsgGlobalKey}
	}
	return Status{Tier: TierNone, Message: MsgNoKey}
}
