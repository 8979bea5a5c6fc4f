package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every option the service recognizes. It is built
// once at startup and passed by reference; orchestration code never
// reads the environment directly.
type Config struct {
	Server    ServerConfig
	Chat      ChatConfig
	Store     StoreConfig
	Retrieval RetrievalConfig
	AI        AIConfig
}

// Load reads the full configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	retrieval, err := loadRetrievalConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		Chat:      chat,
		Store:     StoreConfig{Path: getEnvOrDefault("CHAT_DB_PATH", "data/chat.db")},
		Retrieval: retrieval,
		AI:        ai,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr        string
	CORSOrigins []string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	addr := port
	if !strings.Contains(port, ":") {
		if strings.Contains(port, " ") {
			return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
		}
		addr = ":" + port
	}

	origins := []string{"http://localhost:3000"}
	if raw := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); raw != "" {
		origins = origins[:0]
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	return ServerConfig{Addr: addr, CORSOrigins: origins}, nil
}

// ChatConfig bounds the orchestration pipeline.
type ChatConfig struct {
	MaxHistoryTurns int
	MaxMessageChars int
	RequestTimeout  time.Duration
	PersistTimeout  time.Duration
}

func loadChatConfig() (ChatConfig, error) {
	historyTurns, err := parseIntEnv("MAX_HISTORY_TURNS", 20)
	if err != nil {
		return ChatConfig{}, err
	}

	messageChars, err := parseIntEnv("MAX_MESSAGE_CHARS", 4000)
	if err != nil {
		return ChatConfig{}, err
	}

	requestSecs, err := parseIntEnv("REQUEST_TIMEOUT_SECS", 60)
	if err != nil {
		return ChatConfig{}, err
	}

	persistSecs, err := parseIntEnv("PERSIST_TIMEOUT_SECS", 5)
	if err != nil {
		return ChatConfig{}, err
	}

	return ChatConfig{
		MaxHistoryTurns: historyTurns,
		MaxMessageChars: messageChars,
		RequestTimeout:  time.Duration(requestSecs) * time.Second,
		PersistTimeout:  time.Duration(persistSecs) * time.Second,
	}, nil
}

// StoreConfig points at the turn log database.
type StoreConfig struct {
	Path string
}

// RetrievalConfig selects and bounds the passage retrieval provider.
type RetrievalConfig struct {
	Provider string
	TopK     int
	Timeout  time.Duration

	// Search index connection, used when Provider == "search".
	SearchEndpoint string
	SearchAPIKey   string
	SearchIndex    string
}

// Enabled reports whether the orchestrator should retrieve at all.
func (c RetrievalConfig) Enabled() bool {
	return c.Provider != "" && c.Provider != "none"
}

func loadRetrievalConfig() (RetrievalConfig, error) {
	topK, err := parseIntEnv("RAG_TOP_K", 5)
	if err != nil {
		return RetrievalConfig{}, err
	}

	timeoutSecs, err := parseIntEnv("RETRIEVAL_TIMEOUT_SECS", 10)
	if err != nil {
		return RetrievalConfig{}, err
	}

	return RetrievalConfig{
		Provider:       strings.ToLower(getEnvOrDefault("RAG_PROVIDER", "none")),
		TopK:           topK,
		Timeout:        time.Duration(timeoutSecs) * time.Second,
		SearchEndpoint: strings.TrimSpace(os.Getenv("SEARCH_ENDPOINT")),
		SearchAPIKey:   strings.TrimSpace(os.Getenv("SEARCH_API_KEY")),
		SearchIndex:    getEnvOrDefault("SEARCH_INDEX", "chat-docs"),
	}, nil
}

// AIConfig describes the grounded-answer model.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds a model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: provide ARK_API_KEY + Model or the AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 1 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
