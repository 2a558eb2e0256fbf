package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Backend  BackendConfig
	Realtime RealtimeConfig
}

type AppConfig struct {
	Environment string
	LogFilePath string
	RedisURL    string
	AuthToken   string
}

type BackendConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

type RealtimeConfig struct {
	Transport            string // "websocket" or "nats"
	WebsocketURL         string
	NatsURL              string
	ReconnectWaitSeconds int
	MaxReconnects        int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", "logs/client.log"),
			RedisURL:    getEnv("REDIS_URL", ""),
			AuthToken:   getEnv("AUTH_TOKEN", ""),
		},
		Backend: BackendConfig{
			BaseURL:        getEnv("BACKEND_BASE_URL", "http://localhost:3000"),
			TimeoutSeconds: getEnvAsInt("BACKEND_TIMEOUT_SECONDS", 15),
		},
		Realtime: RealtimeConfig{
			Transport:            getEnv("REALTIME_TRANSPORT", "websocket"),
			WebsocketURL:         getEnv("REALTIME_WS_URL", "ws://localhost:3000/ws"),
			NatsURL:              getEnv("NATS_URL", "nats://localhost:4222"),
			ReconnectWaitSeconds: getEnvAsInt("REALTIME_RECONNECT_WAIT_SECONDS", 2),
			MaxReconnects:        getEnvAsInt("REALTIME_MAX_RECONNECTS", 5),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
