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

// Config aggregates every section of the service configuration.
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Auth    AuthConfig
	Storage StorageConfig
	Live    LiveConfig
	Uploads UploadConfig
	LogMode string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	live, err := loadLiveConfig()
	if err != nil {
		return nil, err
	}

	uploads, err := loadUploadConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		AI:      ai,
		Auth:    auth,
		Storage: loadStorageConfig(),
		Live:    live,
		Uploads: uploads,
		LogMode: getEnvOrDefault("LOG_MODE", "production"),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow passing ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the model provider.
type AIConfig struct {
	APIKey         string
	AccessKey      string
	SecretKey      string
	Model          string
	ReasoningModel string
	TitleModel     string
	BaseURL        string
	Region         string
	Temperature    *float64
	TopP           *float64
	MaxTokens      *int
	StreamResponse bool
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds a model instance from this configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("model credentials missing: provide ARK_API_KEY + ARK_MODEL or an AK/SK pair")
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

// NewReasoningModel builds the model serving reasoning-flagged selections.
// Falls back to the primary model when no dedicated one is configured.
func (c AIConfig) NewReasoningModel(ctx context.Context) (model.ChatModel, error) {
	if c.ReasoningModel == "" || c.ReasoningModel == c.Model {
		return c.NewChatModel(ctx)
	}

	reasoningCfg := c
	reasoningCfg.Model = c.ReasoningModel
	return reasoningCfg.NewChatModel(ctx)
}

// NewTitleModel builds the cheap model used for chat-title generation. Falls
// back to the primary model when no dedicated one is configured.
func (c AIConfig) NewTitleModel(ctx context.Context) (model.ChatModel, error) {
	if c.TitleModel == "" || c.TitleModel == c.Model {
		return c.NewChatModel(ctx)
	}

	titleCfg := c
	titleCfg.Model = c.TitleModel
	return titleCfg.NewChatModel(ctx)
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

	stream, err := parseBoolEnv("ARK_STREAM", true)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:         strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:      strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:      strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:          strings.TrimSpace(os.Getenv("ARK_MODEL")),
		ReasoningModel: strings.TrimSpace(os.Getenv("ARK_REASONING_MODEL")),
		TitleModel:     strings.TrimSpace(os.Getenv("ARK_TITLE_MODEL")),
		BaseURL:        getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:         getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:    temperature,
		TopP:           topP,
		MaxTokens:      maxTokens,
		StreamResponse: stream,
	}, nil
}

// AuthConfig describes session-token settings.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

func loadAuthConfig() (AuthConfig, error) {
	ttlHours, err := parseOptionalIntEnv("AUTH_TOKEN_TTL_HOURS")
	if err != nil {
		return AuthConfig{}, err
	}
	ttl := 72 * time.Hour
	if ttlHours != nil {
		if *ttlHours < 1 {
			return AuthConfig{}, fmt.Errorf("AUTH_TOKEN_TTL_HOURS must be positive, got %d", *ttlHours)
		}
		ttl = time.Duration(*ttlHours) * time.Hour
	}

	return AuthConfig{
		JWTSecret: strings.TrimSpace(os.Getenv("AUTH_JWT_SECRET")),
		TokenTTL:  ttl,
	}, nil
}

// StorageConfig selects the persistence backend. An empty DSN selects the
// in-memory store.
type StorageConfig struct {
	PostgresDSN string
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		PostgresDSN: strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
	}
}

// LiveConfig tunes the heartbeat scheduler.
type LiveConfig struct {
	HeartbeatInterval time.Duration
	HeartbeatLifetime time.Duration
}

func loadLiveConfig() (LiveConfig, error) {
	intervalMs, err := parseOptionalIntEnv("HEARTBEAT_INTERVAL_MS")
	if err != nil {
		return LiveConfig{}, err
	}
	lifetimeSec, err := parseOptionalIntEnv("HEARTBEAT_LIFETIME_SECONDS")
	if err != nil {
		return LiveConfig{}, err
	}

	cfg := LiveConfig{
		HeartbeatInterval: time.Second,
		HeartbeatLifetime: 120 * time.Second,
	}
	if intervalMs != nil {
		cfg.HeartbeatInterval = time.Duration(*intervalMs) * time.Millisecond
	}
	if lifetimeSec != nil {
		cfg.HeartbeatLifetime = time.Duration(*lifetimeSec) * time.Second
	}
	return cfg, nil
}

// UploadConfig describes the file-upload pipeline.
type UploadConfig struct {
	Dir      string
	MaxBytes int64
}

func loadUploadConfig() (UploadConfig, error) {
	maxMB, err := parseOptionalIntEnv("UPLOAD_MAX_MB")
	if err != nil {
		return UploadConfig{}, err
	}
	maxBytes := int64(10 << 20)
	if maxMB != nil {
		maxBytes = int64(*maxMB) << 20
	}

	return UploadConfig{
		Dir:      getEnvOrDefault("UPLOAD_DIR", "uploads"),
		MaxBytes: maxBytes,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
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
