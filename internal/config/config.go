// Package config loads campusdesk settings from the environment and an
// optional YAML overlay file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// StoreBackend selects the task storage engine.
type StoreBackend string

const (
	StoreSurrealDB StoreBackend = "surrealdb"
	StoreMongoDB   StoreBackend = "mongodb"
	StoreNeo4j     StoreBackend = "neo4j"
	StoreMemory    StoreBackend = "memory"
)

// Provider identifies the chat completion backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
	ProviderGemini    Provider = "gemini"
	ProviderBedrock   Provider = "bedrock"
)

// DefaultSystemPrompt is the assistant persona sent ahead of every conversation.
const DefaultSystemPrompt = "You are a helpful college assistant chatbot for College Guide app. " +
	"You help students with academic questions, course information, exam schedules, " +
	"and general college-related queries. Be friendly, concise, and helpful."

// Config holds all configuration values.
type Config struct {
	// HTTP server
	ServerPort string

	// Storage
	StoreBackend StoreBackend

	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// MongoDB connection
	MongoURI      string
	MongoDatabase string

	// Neo4j connection
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPass     string
	Neo4jDatabase string

	// Identity
	JWTSecret string
	JWTIssuer string

	// Chat provider
	LLMProvider     Provider
	LLMModel        string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GeminiAPIKey    string
	GeminiBaseURL   string
	OllamaHost      string
	AWSRegion       string

	// Chat behaviour
	Chat ChatConfig

	// Logging
	LogFile  string
	LogLevel slog.Level

	// CLI client
	ServerURL     string
	Token         string
	ClientTimeout time.Duration
}

// ChatConfig holds the fixed parameters of every completion request.
// These are configuration, never caller-supplied.
type ChatConfig struct {
	SystemPrompt string  `yaml:"system_prompt"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`
	MaxHistory   int     `yaml:"max_history"`
}

// Load reads configuration from environment variables.
// If CAMPUSDESK_CONFIG names a YAML file, its values override the chat
// defaults before environment overrides are applied.
func Load() (Config, error) {
	cfg := Config{
		ServerPort: getEnv("CAMPUSDESK_SERVER_PORT", "8484"),

		StoreBackend: StoreBackend(strings.ToLower(getEnv("STORE_BACKEND", string(StoreSurrealDB)))),

		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "campusdesk"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "todos"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "campusdesk"),

		Neo4jURI:      getEnv("NEO4J_URI", "neo4j://localhost:7687"),
		Neo4jUser:     getEnv("NEO4J_USER", "neo4j"),
		Neo4jPass:     getEnv("NEO4J_PASS", "password"),
		Neo4jDatabase: getEnv("NEO4J_DATABASE", ""),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTIssuer: getEnv("JWT_ISSUER", "campusdesk"),

		LLMProvider:     Provider(strings.ToLower(getEnv("LLM_PROVIDER", string(ProviderOpenAI)))),
		LLMModel:        os.Getenv("LLM_MODEL"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:   getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),

		Chat: DefaultChatConfig(),

		LogFile:  getEnv("CAMPUSDESK_LOG_FILE", "/tmp/campusdesk.log"),
		LogLevel: parseLogLevel(getEnv("CAMPUSDESK_LOG_LEVEL", "INFO")),

		ServerURL:     getEnv("CAMPUSDESK_SERVER_URL", "http://localhost:8484"),
		Token:         os.Getenv("CAMPUSDESK_TOKEN"),
		ClientTimeout: getDuration("CAMPUSDESK_CLIENT_TIMEOUT", 60*time.Second),
	}

	if path := os.Getenv("CAMPUSDESK_CONFIG"); path != "" {
		if err := cfg.Chat.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	if v := os.Getenv("CHAT_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse CHAT_MAX_TOKENS: %w", err)
		}
		cfg.Chat.MaxTokens = n
	}
	if v := os.Getenv("CHAT_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse CHAT_TEMPERATURE: %w", err)
		}
		cfg.Chat.Temperature = f
	}
	if v := os.Getenv("CHAT_MAX_HISTORY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse CHAT_MAX_HISTORY: %w", err)
		}
		cfg.Chat.MaxHistory = n
	}

	if cfg.LLMModel == "" {
		cfg.LLMModel = DefaultModel(cfg.LLMProvider)
	}

	return cfg, nil
}

// DefaultChatConfig returns the chat parameters of the
// College Guide assistant.
func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		SystemPrompt: DefaultSystemPrompt,
		MaxTokens:    500,
		Temperature:  0.7,
		MaxHistory:   50,
	}
}

// chatFile mirrors ChatConfig for YAML decoding. Temperature is a pointer
// so an explicit 0 is distinguishable from an absent key.
type chatFile struct {
	SystemPrompt string   `yaml:"system_prompt"`
	MaxTokens    int      `yaml:"max_tokens"`
	Temperature  *float64 `yaml:"temperature"`
	MaxHistory   int      `yaml:"max_history"`
}

// mergeFile overlays the values present in a YAML file.
func (c *ChatConfig) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var file struct {
		Chat chatFile `yaml:"chat"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if file.Chat.SystemPrompt != "" {
		c.SystemPrompt = strings.TrimSpace(file.Chat.SystemPrompt)
	}
	if file.Chat.MaxTokens > 0 {
		c.MaxTokens = file.Chat.MaxTokens
	}
	if file.Chat.Temperature != nil {
		c.Temperature = *file.Chat.Temperature
	}
	if file.Chat.MaxHistory > 0 {
		c.MaxHistory = file.Chat.MaxHistory
	}
	return nil
}

// DefaultModel returns the model used when LLM_MODEL is unset.
func DefaultModel(p Provider) string {
	switch p {
	case ProviderAnthropic:
		return "claude-3-5-haiku-latest"
	case ProviderOllama:
		return "llama3.2"
	case ProviderGemini:
		return "gemini-1.5-flash"
	case ProviderBedrock:
		return "anthropic.claude-3-haiku-20240307-v1:0"
	default:
		return "gpt-3.5-turbo"
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
