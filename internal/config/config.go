package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	DB struct {
		DSN string
	}
	API struct {
		Port     string
		BasePath string
	}
	Logging struct {
		Dir   string
		Level string
	}
	WS struct {
		MaxConnsPerUser int
		WriteTimeout    time.Duration
		AuthTimeout     time.Duration
	}
	Kafka struct {
		Enabled bool
		Broker  string
		Topic   string
		GroupID string
	}
	Telegram struct {
		Enabled       bool
		BotToken      string
		ChatID        int64
		RatePerSecond int
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	cfg.DB.DSN = os.Getenv("DB_DSN")

	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	if n, err := strconv.Atoi(os.Getenv("WS_MAX_CONNS_PER_USER")); err == nil {
		cfg.WS.MaxConnsPerUser = n
	}
	if d, err := time.ParseDuration(os.Getenv("WS_WRITE_TIMEOUT")); err == nil {
		cfg.WS.WriteTimeout = d
	}
	if d, err := time.ParseDuration(os.Getenv("WS_AUTH_TIMEOUT")); err == nil {
		cfg.WS.AuthTimeout = d
	}

	// Kafka feed ingest is optional; enabled when a broker is configured
	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")
	cfg.Kafka.Enabled = cfg.Kafka.Broker != ""

	// Telegram escalation is optional; enabled when a bot token is configured
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if id, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64); err == nil {
		cfg.Telegram.ChatID = id
	}
	if r, err := strconv.Atoi(os.Getenv("TELEGRAM_RATE_PER_SECOND")); err == nil {
		cfg.Telegram.RatePerSecond = r
	}
	cfg.Telegram.Enabled = cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0

	// Validate required settings
	missing := []string{}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if cfg.Kafka.Enabled && cfg.Kafka.Topic == "" {
		missing = append(missing, "KAFKA_TOPIC")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.WS.MaxConnsPerUser == 0 {
		cfg.WS.MaxConnsPerUser = 10
	}
	if cfg.WS.WriteTimeout == 0 {
		cfg.WS.WriteTimeout = 10 * time.Second
	}
	if cfg.WS.AuthTimeout == 0 {
		cfg.WS.AuthTimeout = 15 * time.Second
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "mapa-emergencias"
	}
	if cfg.Telegram.RatePerSecond == 0 {
		cfg.Telegram.RatePerSecond = 1
	}

	return cfg, nil
}
