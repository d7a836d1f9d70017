package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

type Config struct {
	CompletionsAPIURL string
	CompletionsAPIKey string
	CompletionsModel  string
	ServerPort        string
	DBPath            string
	AppDataPath       string

	// Context assembly knobs.
	HistoryCacheTTL time.Duration
	HistoryWindow   int
	InsightWindow   int

	// Insight dedup knobs.
	InsightDedupWindow int
	InsightDedupMaxAge time.Duration
}

func getEnv(key, defaultValue string, printEnv bool) string {
	logger := log.Default()
	value := os.Getenv(key)
	if printEnv {
		logger.Info("Env", "key", key, "value", value)
	}
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvOrPanic(key string, printEnv bool) string {
	value := getEnv(key, "", printEnv)
	if value == "" {
		panic(fmt.Sprintf("Environment variable %s is not set", key))
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration, printEnv bool) time.Duration {
	raw := getEnv(key, "", printEnv)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Default().Warn("Invalid duration, using default", "key", key, "value", raw)
		return defaultValue
	}
	return d
}

func getEnvInt(key string, defaultValue int, printEnv bool) int {
	raw := getEnv(key, "", printEnv)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Default().Warn("Invalid integer, using default", "key", key, "value", raw)
		return defaultValue
	}
	return n
}

func LoadConfig(printEnv bool) (*Config, error) {
	_ = godotenv.Load()

	conf := &Config{
		CompletionsAPIURL:  getEnv("COMPLETIONS_API_URL", "https://api.openai.com/v1", printEnv),
		CompletionsAPIKey:  getEnvOrPanic("COMPLETIONS_API_KEY", printEnv),
		CompletionsModel:   getEnv("COMPLETIONS_MODEL", "gpt-4.1-mini", printEnv),
		ServerPort:         getEnv("SERVER_PORT", "8080", printEnv),
		DBPath:             getEnv("DB_PATH", "./output/sqlite/store.db", printEnv),
		AppDataPath:        getEnv("APP_DATA_PATH", "./output", printEnv),
		HistoryCacheTTL:    getEnvDuration("HISTORY_CACHE_TTL", 5*time.Minute, printEnv),
		HistoryWindow:      getEnvInt("HISTORY_WINDOW", 10, printEnv),
		InsightWindow:      getEnvInt("INSIGHT_WINDOW", 5, printEnv),
		InsightDedupWindow: getEnvInt("INSIGHT_DEDUP_WINDOW", 10, printEnv),
		InsightDedupMaxAge: getEnvDuration("INSIGHT_DEDUP_MAX_AGE", 24*time.Hour, printEnv),
	}

	return conf, nil
}
