package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tradeGate/internal/adapters/logger"
	"tradeGate/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	// Logging
	LogLevel  logger.LogLevel
	LogFormat logger.Format

	// Persistence
	StateStore string // "sqlite" or "memory"
	DBPath     string

	// HTTP API
	HTTPAddr string

	// Binance market data
	APIKey             string
	SecretKey          string
	IsTestnet          bool
	QuoteAsset         string
	AssetSpecTTL       time.Duration
	MetadataMaxRetries int

	// Execution
	ExecutionMode       domain.ExecutionMode // Default mode for identities seen for the first time
	AllowLiveTrading    bool
	ExchangeOrderURL    string
	ExchangeAPIKey      string // Sent as X-Api-Key to the signing gateway, if set
	BuilderAddress      string
	BuilderFeeTenthsBps int
	SubmitTimeout       time.Duration
	OrderTIF            string

	// Default risk parameters for new identities
	Risk domain.RiskParams

	// Trading day boundary for the daily rollover
	RolloverLocation *time.Location
}

// State store backends.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

var validTIFs = map[string]bool{"IOC": true, "GTC": true, "ALO": true}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogFormat = logger.ParseFormat(getEnv("LOG_FORMAT", "text"))

	cfg.StateStore = strings.ToLower(getEnv("STATE_STORE", StoreSQLite))
	if cfg.StateStore != StoreSQLite && cfg.StateStore != StoreMemory {
		errs = append(errs, fmt.Sprintf("STATE_STORE must be %q or %q (got %q)", StoreSQLite, StoreMemory, cfg.StateStore))
	}
	cfg.DBPath = getEnv("DB_PATH", "./data/tradegate.db")
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Binance market data (public endpoints; keys are optional)
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety
	cfg.QuoteAsset = strings.ToUpper(getEnv("QUOTE_ASSET", "USDT"))

	ttlSeconds, err := getEnvAsIntRequired("ASSET_SPEC_TTL_SECONDS", 900)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid ASSET_SPEC_TTL_SECONDS: %v", err))
	} else if ttlSeconds <= 0 {
		errs = append(errs, "ASSET_SPEC_TTL_SECONDS must be positive")
	}
	cfg.AssetSpecTTL = time.Duration(ttlSeconds) * time.Second

	cfg.MetadataMaxRetries = getEnvAsInt("METADATA_MAX_RETRIES", 3)
	if cfg.MetadataMaxRetries <= 0 {
		errs = append(errs, "METADATA_MAX_RETRIES must be positive")
	}

	// Execution. Anything but an explicit LIVE is SIMULATED.
	cfg.ExecutionMode = domain.ParseMode(getEnv("EXECUTION_MODE", string(domain.ModeSimulated)))
	cfg.AllowLiveTrading = getEnvAsBool("ALLOW_LIVE_TRADING", false)
	cfg.ExchangeOrderURL = getEnv("EXCHANGE_ORDER_URL", "")
	cfg.ExchangeAPIKey = getEnv("EXCHANGE_API_KEY", "")

	if cfg.ExecutionMode == domain.ModeLive {
		if !cfg.AllowLiveTrading {
			errs = append(errs, "EXECUTION_MODE=LIVE requires ALLOW_LIVE_TRADING=true")
		}
		if cfg.ExchangeOrderURL == "" {
			errs = append(errs, "EXECUTION_MODE=LIVE requires EXCHANGE_ORDER_URL")
		}
	}
	if cfg.AllowLiveTrading && cfg.ExchangeOrderURL == "" {
		errs = append(errs, "ALLOW_LIVE_TRADING requires EXCHANGE_ORDER_URL")
	}

	cfg.BuilderAddress = getEnv("BUILDER_ADDRESS", "")
	cfg.BuilderFeeTenthsBps, err = getEnvAsIntRequired("BUILDER_FEE_TENTHS_BPS", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid BUILDER_FEE_TENTHS_BPS: %v", err))
	} else if cfg.BuilderFeeTenthsBps < 0 {
		errs = append(errs, "BUILDER_FEE_TENTHS_BPS cannot be negative")
	} else if cfg.BuilderFeeTenthsBps > 0 && cfg.BuilderAddress == "" {
		errs = append(errs, "BUILDER_FEE_TENTHS_BPS requires BUILDER_ADDRESS")
	}

	timeoutSeconds, err := getEnvAsFloatRequired("SUBMIT_TIMEOUT_SECONDS", 10)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SUBMIT_TIMEOUT_SECONDS: %v", err))
	} else if timeoutSeconds <= 0 {
		errs = append(errs, "SUBMIT_TIMEOUT_SECONDS must be positive")
	}
	cfg.SubmitTimeout = time.Duration(timeoutSeconds * float64(time.Second))

	cfg.OrderTIF = strings.ToUpper(getEnv("ORDER_TIF", "IOC"))
	if !validTIFs[cfg.OrderTIF] {
		errs = append(errs, fmt.Sprintf("ORDER_TIF must be one of IOC, GTC, ALO (got %q)", cfg.OrderTIF))
	}

	// Risk defaults
	defaults := domain.DefaultRiskParams()
	risk := domain.RiskParams{Mode: cfg.ExecutionMode}
	floatKeys := []struct {
		key string
		def float64
		dst *float64
	}{
		{"RISK_PER_TRADE", defaults.RiskPerTrade, &risk.RiskPerTrade},
		{"MAX_POSITION_SIZE", defaults.MaxPositionSize, &risk.MaxPositionSize},
		{"MIN_CONFIDENCE", defaults.MinConfidence, &risk.MinConfidence},
		{"STOP_LOSS_PCT", defaults.StopLossPct, &risk.StopLossPct},
		{"TAKE_PROFIT_PCT", defaults.TakeProfitPct, &risk.TakeProfitPct},
		{"DAILY_PNL_STOP", defaults.DailyPnLStop, &risk.DailyPnLStop},
	}
	for _, k := range floatKeys {
		*k.dst, err = getEnvAsFloatRequired(k.key, k.def)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: %v", k.key, err))
		}
	}

	intervalSeconds, err := getEnvAsFloatRequired("MIN_TRADE_INTERVAL_SECONDS", defaults.MinTradeInterval.Seconds())
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_TRADE_INTERVAL_SECONDS: %v", err))
	}
	risk.MinTradeInterval = time.Duration(intervalSeconds * float64(time.Second))

	risk.ConsecutiveLossStop, err = getEnvAsIntRequired("CONSECUTIVE_LOSS_STOP", defaults.ConsecutiveLossStop)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid CONSECUTIVE_LOSS_STOP: %v", err))
	}

	if err := risk.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	cfg.Risk = risk

	// Rollover
	tz := getEnv("ROLLOVER_TZ", "UTC")
	cfg.RolloverLocation, err = time.LoadLocation(tz)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid ROLLOVER_TZ %q: %v", tz, err))
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
