package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Bot      BotConfig
	Realtime RealtimeConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	storage, err := loadStorageConfig()
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	bot, err := loadBotConfig()
	if err != nil {
		return nil, err
	}

	realtime, err := loadRealtimeConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Storage: storage, Auth: auth, Bot: bot, Realtime: realtime}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr          string
	AllowedOrigin string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	origin := getEnvOrDefault("CORS_ALLOWED_ORIGIN", "*")

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigin: origin}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigin: origin}, nil
}

// 存储驱动
const (
	DriverMemory = "memory"
	DriverMongo  = "mongo"
)

// StorageConfig 描述消息与用户存储配置。
type StorageConfig struct {
	Driver        string
	MongoURI      string
	MongoDatabase string
	MongoTimeout  time.Duration
}

func loadStorageConfig() (StorageConfig, error) {
	driver := strings.ToLower(getEnvOrDefault("STORE_DRIVER", DriverMemory))
	if driver != DriverMemory && driver != DriverMongo {
		return StorageConfig{}, fmt.Errorf("invalid STORE_DRIVER value %q: want %s or %s", driver, DriverMemory, DriverMongo)
	}

	timeout, err := parseOptionalIntEnv("MONGO_TIMEOUT_SECONDS")
	if err != nil {
		return StorageConfig{}, err
	}
	timeoutSeconds := 10
	if timeout != nil && *timeout > 0 {
		timeoutSeconds = *timeout
	}

	cfg := StorageConfig{
		Driver:        driver,
		MongoURI:      strings.TrimSpace(os.Getenv("MONGO_URI")),
		MongoDatabase: getEnvOrDefault("MONGO_DATABASE", "chatbot"),
		MongoTimeout:  time.Duration(timeoutSeconds) * time.Second,
	}

	if cfg.Driver == DriverMongo && cfg.MongoURI == "" {
		return StorageConfig{}, fmt.Errorf("MONGO_URI is required when STORE_DRIVER=%s", DriverMongo)
	}
	return cfg, nil
}

// AuthConfig 描述令牌签发配置。
type AuthConfig struct {
	SigningKey string
	TokenTTL   time.Duration
}

// devSigningKey 仅在 APP_ENV=development 且未配置密钥时使用。
const devSigningKey = "dev-only-insecure-key"

func loadAuthConfig() (AuthConfig, error) {
	key := strings.TrimSpace(os.Getenv("JWT_PRIVATE_KEY"))
	if key == "" {
		if strings.EqualFold(os.Getenv("APP_ENV"), "development") {
			key = devSigningKey
		} else {
			return AuthConfig{}, fmt.Errorf("JWT_PRIVATE_KEY is required")
		}
	}

	ttlHours, err := parseOptionalIntEnv("JWT_TTL_HOURS")
	if err != nil {
		return AuthConfig{}, err
	}
	// 0 表示不过期
	var ttl time.Duration
	if ttlHours != nil && *ttlHours > 0 {
		ttl = time.Duration(*ttlHours) * time.Hour
	}

	return AuthConfig{SigningKey: key, TokenTTL: ttl}, nil
}

// BotConfig 描述自动回复行为。
type BotConfig struct {
	RepromptUnknown bool
}

func loadBotConfig() (BotConfig, error) {
	reprompt, err := parseBoolEnv("BOT_REPROMPT_UNKNOWN", false)
	if err != nil {
		return BotConfig{}, err
	}
	return BotConfig{RepromptUnknown: reprompt}, nil
}

// RealtimeConfig 描述实时推送通道配置。
type RealtimeConfig struct {
	SendBuffer int
}

func loadRealtimeConfig() (RealtimeConfig, error) {
	buffer, err := parseOptionalIntEnv("WS_SEND_BUFFER")
	if err != nil {
		return RealtimeConfig{}, err
	}
	size := 64
	if buffer != nil {
		if *buffer < 1 {
			size = 1
		} else {
			size = *buffer
		}
	}
	return RealtimeConfig{SendBuffer: size}, nil
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
