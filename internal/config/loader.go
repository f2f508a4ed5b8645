package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load merges the TOML file at path (skipped when empty) over the defaults,
// loads .env from the working directory if present, and applies environment
// overrides. The result is not validated; call Validate.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	// A missing .env is not an error.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	if cfg.Solana.WSURL == "" {
		cfg.Solana.WSURL = deriveWS(cfg.Solana.RPCURL)
	}
	return &cfg, nil
}

// applyEnvOverrides applies the legacy unprefixed names first, then MEV_*,
// so a prefixed variable wins when both are set.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Solana.RPCURL, "SOLANA_RPC_URL")
	setStr(&cfg.Solana.WSURL, "SOLANA_WS_URL")
	setStr(&cfg.Solana.WalletPath, "WALLET_PATH")
	setStr(&cfg.Oracle.APIKey, "RIG_API_KEY")
	setStr(&cfg.Notify.TelegramBotToken, "TELEGRAM_BOT_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TELEGRAM_CHAT_ID")

	// ── Solana ──
	setStr(&cfg.Solana.RPCURL, "MEV_SOLANA_RPC_URL")
	setStr(&cfg.Solana.WSURL, "MEV_SOLANA_WS_URL")
	setStr(&cfg.Solana.WalletPath, "MEV_SOLANA_WALLET_PATH")
	setStr(&cfg.Solana.Commitment, "MEV_SOLANA_COMMITMENT")

	// ── Agent ──
	setFloat64(&cfg.Agent.MinOpportunityScore, "MEV_AGENT_MIN_OPPORTUNITY_SCORE")
	setInt(&cfg.Agent.MaxRiskLevel, "MEV_AGENT_MAX_RISK_LEVEL")
	setFloat64(&cfg.Agent.MinProfitThreshold, "MEV_AGENT_MIN_PROFIT_THRESHOLD")
	setInt(&cfg.Agent.MaxRiskThreshold, "MEV_AGENT_MAX_RISK_THRESHOLD")
	setStringSlice(&cfg.Agent.TargetTokens, "MEV_AGENT_TARGET_TOKENS")
	setBool(&cfg.Agent.DryRun, "MEV_AGENT_DRY_RUN")
	setInt(&cfg.Agent.QueueSize, "MEV_AGENT_QUEUE_SIZE")

	// ── Stream ──
	setDuration(&cfg.Stream.Backoff, "MEV_STREAM_BACKOFF")
	setInt(&cfg.Stream.MaxRetries, "MEV_STREAM_MAX_RETRIES")
	setInt(&cfg.Stream.ConfirmationLag, "MEV_STREAM_CONFIRMATION_LAG")

	// ── Oracle ──
	setStr(&cfg.Oracle.Endpoint, "MEV_ORACLE_ENDPOINT")
	setStr(&cfg.Oracle.APIKey, "MEV_ORACLE_API_KEY")
	setFloat64(&cfg.Oracle.RequestsPerSecond, "MEV_ORACLE_REQUESTS_PER_SECOND")
	setInt(&cfg.Oracle.RetryMax, "MEV_ORACLE_RETRY_MAX")

	// ── Router ──
	setStr(&cfg.Router.Endpoint, "MEV_ROUTER_ENDPOINT")
	setInt(&cfg.Router.SlippageBps, "MEV_ROUTER_SLIPPAGE_BPS")
	setUint64(&cfg.Router.PriorityFee, "MEV_ROUTER_PRIORITY_FEE")
	setDuration(&cfg.Router.GuardTTL, "MEV_ROUTER_GUARD_TTL")

	// ── Storage ──
	setStr(&cfg.Storage.TradeLogDir, "MEV_STORAGE_TRADE_LOG_DIR")
	setStr(&cfg.Storage.PostgresDSN, "MEV_STORAGE_POSTGRES_DSN")
	setStr(&cfg.Storage.ClickhouseDSN, "MEV_STORAGE_CLICKHOUSE_DSN")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "MEV_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MEV_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MEV_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MEV_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MEV_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MEV_REDIS_TLS_ENABLED")

	// ── Kafka ──
	setStringSlice(&cfg.Kafka.Brokers, "MEV_KAFKA_BROKERS")
	setStr(&cfg.Kafka.Topic, "MEV_KAFKA_TOPIC")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "MEV_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MEV_S3_REGION")
	setStr(&cfg.S3.Bucket, "MEV_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MEV_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MEV_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MEV_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MEV_S3_FORCE_PATH_STYLE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramBotToken, "MEV_NOTIFY_TELEGRAM_BOT_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MEV_NOTIFY_TELEGRAM_CHAT_ID")

	// ── Observability ──
	setStr(&cfg.Observability.MetricsAddr, "MEV_METRICS_ADDR")
	setStr(&cfg.Observability.OTelEndpoint, "MEV_OTEL_ENDPOINT")

	// ── Log ──
	setStr(&cfg.Log.Level, "MEV_LOG_LEVEL")
	setStr(&cfg.Log.Format, "MEV_LOG_FORMAT")
}

// Typed env helpers. Each only mutates dst when the variable is set, non-empty
// and parses.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
