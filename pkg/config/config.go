package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the executor.
type Config struct {
	Port string

	// Bybit
	BybitAPIKey    string
	BybitAPISecret string
	BybitTestnet   bool
	BybitDemo      bool
	HedgeMode      bool // account position mode: one-way (default) or hedge
	RecvWindowMs   int

	// Risk gate
	Cooldown        time.Duration
	MinPriceDelta   float64
	MaxLossPerDay   float64 // 0 disables the daily breaker
	StrictDirection bool

	// Position sizing
	SizingMode     string // "fixed", "balance-scaled", "leveraged-fixed"
	FixedAmount    float64
	PercentRate    float64
	Leverage       int
	MaxOrderAmount float64

	// Order execution
	MaxAttempts  int
	PoliciesPath string // optional YAML file of per-strategy policies

	// PnL harvesting
	HarvestSymbols  []string
	HarvestInterval time.Duration
	HarvestLookback time.Duration

	// Notifications
	TelegramToken  string
	TelegramChatID string

	// Webhook
	WebhookToken string

	// Ledger
	LedgerPath string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:            getEnv("PORT", "8080"),
		BybitAPIKey:     os.Getenv("BYBIT_API_KEY"),
		BybitAPISecret:  os.Getenv("BYBIT_API_SECRET"),
		BybitTestnet:    getEnv("BYBIT_TESTNET", "false") == "true",
		BybitDemo:       getEnv("BYBIT_DEMO", "false") == "true",
		HedgeMode:       strings.ToLower(getEnv("POSITION_MODE", "one-way")) == "hedge",
		RecvWindowMs:    getEnvInt("BYBIT_RECV_WINDOW_MS", 10000),
		Cooldown:        time.Duration(getEnvInt("COOLDOWN_SECONDS", 600)) * time.Second,
		MinPriceDelta:   getEnvFloat("MIN_PRICE_DELTA", 10),
		MaxLossPerDay:   getEnvFloat("MAX_LOSS_PER_DAY", 0),
		StrictDirection: getEnv("STRICT_DIRECTION", "false") == "true",
		SizingMode:      strings.ToLower(getEnv("SIZING_MODE", "fixed")),
		FixedAmount:     getEnvFloat("FIXED_AMOUNT", 100),
		PercentRate:     getEnvFloat("PERCENT_RATE", 0),
		Leverage:        getEnvInt("LEVERAGE", 0),
		MaxOrderAmount:  getEnvFloat("MAX_ORDER_AMOUNT", 0),
		MaxAttempts:     getEnvInt("ORDER_MAX_ATTEMPTS", 3),
		PoliciesPath:    getEnv("POLICIES_PATH", ""),
		HarvestSymbols:  splitAndTrim(getEnv("HARVEST_SYMBOLS", "")),
		HarvestInterval: time.Duration(getEnvInt("HARVEST_INTERVAL_SECONDS", 3600)) * time.Second,
		HarvestLookback: time.Duration(getEnvInt("HARVEST_LOOKBACK_SECONDS", 3600)) * time.Second,
		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:  os.Getenv("TELEGRAM_CHAT_ID"),
		WebhookToken:    os.Getenv("WEBHOOK_TOKEN"),
		LedgerPath:      getEnv("LEDGER_PATH", "./data/trades.db"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
