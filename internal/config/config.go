package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	AllowedOrigins []string
	// Database
	DBDriver    string // sqlite, postgres or memory
	SQLitePath  string
	DatabaseURL string
	// Logging
	LogLevel  string
	LogFormat string
	// Chat
	ChatHistoryLimit int
	ChatTimeout      time.Duration
	// Optional YAML overrides for the embedded defaults
	ProviderCatalogPath string
	PromptSpecPath      string
	OllamaBaseURL       string
	// Deployment level keys, the last credential tier
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GeminiAPIKey    string
	GroqAPIKey      string
	// Mark the session cookie Secure (behind TLS)
	SessionCookieSecure bool
}

// EnvKeys maps provider names to their deployment level key.
func (c Config) EnvKeys() map[string]string {
	return map[string]string{
		"claude": c.AnthropicAPIKey,
		"openai": c.OpenAIAPIKey,
		"gemini": c.GeminiAPIKey,
		"groq":   c.GroqAPIKey,
	}
}

func Load() Config {
	_ = godotenv.Load()
	return Config{
		Port:                getEnvDefault("PORT", "8080"),
		AllowedOrigins:      getEnvListDefault("ALLOWED_ORIGINS", []string{"*"}),
		DBDriver:            strings.ToLower(getEnvDefault("DB_DRIVER", "sqlite")),
		SQLitePath:          getEnvDefault("SQLITE_PATH", "./chatbot_builder.db"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		LogLevel:            getEnvDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvDefault("LOG_FORMAT", "text"),
		ChatHistoryLimit:    getEnvIntDefault("CHAT_HISTORY_LIMIT", 20),
		ChatTimeout:         getEnvDurationDefault("CHAT_TIMEOUT", 120*time.Second),
		ProviderCatalogPath: os.Getenv("PROVIDER_CATALOG_PATH"),
		PromptSpecPath:      os.Getenv("PROMPT_SPEC_PATH"),
		OllamaBaseURL:       getEnvDefault("OLLAMA_BASE_URL", "http://localhost:11434"),
		AnthropicAPIKey:     os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GroqAPIKey:          os.Getenv("GROQ_API_KEY"),
		SessionCookieSecure: getEnvBoolDefault("SESSION_COOKIE_SECURE", false),
	}
}

// ClientConfig configures the terminal client. Flags override it.
type ClientConfig struct {
	ServerURL string
	Token     string
	StateFile string
	Timeout   time.Duration
}

func LoadClient() ClientConfig {
	_ = godotenv.Load()
	return ClientConfig{
		ServerURL: getEnvDefault("ACTIONBOT_SERVER", "http://localhost:8080/api"),
		Token:     os.Getenv("ACTIONBOT_TOKEN"),
		StateFile: getEnvDefault("ACTIONBOT_STATE_FILE", defaultStateFile()),
		Timeout:   getEnvDurationDefault("ACTIONBOT_TIMEOUT", 150*time.Second),
	}
}

func defaultStateFile() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + "/actionbot/sessions.json"
	}
	return ".actionbot/sessions.json"
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvListDefault(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			s := strings.TrimSpace(p)
			if s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// getEnvDurationDefault accepts Go durations ("90s") or plain seconds.
func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
