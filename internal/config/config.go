// Package config defines the agent configuration and its validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config is the root configuration. Fields come from built-in defaults, an
// optional TOML file, then environment overrides. It is not modified after Load.
type Config struct {
	Solana        SolanaConfig        `toml:"solana"`
	Agent         AgentConfig         `toml:"agent"`
	Stream        StreamConfig        `toml:"stream"`
	Oracle        OracleConfig        `toml:"oracle"`
	Router        RouterConfig        `toml:"router"`
	Storage       StorageConfig       `toml:"storage"`
	Redis         RedisConfig         `toml:"redis"`
	Kafka         KafkaConfig         `toml:"kafka"`
	S3            S3Config            `toml:"s3"`
	Notify        NotifyConfig        `toml:"notify"`
	Observability ObservabilityConfig `toml:"observability"`
	Log           LogConfig           `toml:"log"`
}

// SolanaConfig holds chain endpoints and the signing wallet.
type SolanaConfig struct {
	RPCURL     string `toml:"rpc_url"`
	WSURL      string `toml:"ws_url"` // derived from rpc_url when empty
	WalletPath string `toml:"wallet_path"`
	Commitment string `toml:"commitment"`
}

// AgentConfig holds the decision thresholds.
type AgentConfig struct {
	MinOpportunityScore float64  `toml:"min_opportunity_score"`
	MaxRiskLevel        int      `toml:"max_risk_level"`
	MinProfitThreshold  float64  `toml:"min_profit_threshold"`
	MaxRiskThreshold    int      `toml:"max_risk_threshold"`
	TargetTokens        []string `toml:"target_tokens"`
	DryRun              bool     `toml:"dry_run"`
	QueueSize           int      `toml:"queue_size"`
}

// StreamConfig controls the swap stream reconnect policy.
type StreamConfig struct {
	Backoff         duration `toml:"backoff"`
	MaxRetries      int      `toml:"max_retries"` // 0 retries forever
	ConfirmationLag int      `toml:"confirmation_lag"`
}

// OracleConfig selects the scoring oracle. An empty endpoint uses the local heuristic.
type OracleConfig struct {
	Endpoint          string  `toml:"endpoint"`
	APIKey            string  `toml:"api_key"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	RetryMax          int     `toml:"retry_max"`
}

// RouterConfig configures the Jupiter client and execution fees.
type RouterConfig struct {
	Endpoint    string   `toml:"endpoint"`
	SlippageBps int      `toml:"slippage_bps"`
	PriorityFee uint64   `toml:"priority_fee"` // micro-lamports per CU, sandwich legs only
	GuardTTL    duration `toml:"guard_ttl"`
}

// StorageConfig selects trade-log and evaluation backends. Empty DSNs disable
// the database backends.
type StorageConfig struct {
	TradeLogDir   string `toml:"trade_log_dir"`
	PostgresDSN   string `toml:"postgres_dsn"`
	ClickhouseDSN string `toml:"clickhouse_dsn"`
}

// RedisConfig holds the execution guard connection. An empty addr uses an
// in-process guard.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// KafkaConfig enables the Kafka notifier when brokers are set.
type KafkaConfig struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// S3Config holds S3-compatible archive storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds Telegram credentials. Telegram is skipped when either is empty.
type NotifyConfig struct {
	TelegramBotToken string `toml:"telegram_bot_token"`
	TelegramChatID   string `toml:"telegram_chat_id"`
}

// ObservabilityConfig holds the metrics listener and the OTLP endpoint.
type ObservabilityConfig struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTelEndpoint string `toml:"otel_endpoint"`
}

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "text" or "json"
}

// duration decodes TOML strings like "5s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Solana: SolanaConfig{
			RPCURL:     "https://api.mainnet-beta.solana.com",
			WalletPath: "~/.config/solana/id.json",
			Commitment: "confirmed",
		},
		Agent: AgentConfig{
			MinOpportunityScore: 0.8,
			MaxRiskLevel:        2,
			MinProfitThreshold:  0.5,
			MaxRiskThreshold:    2,
			TargetTokens:        []string{"SOL", "USDC", "BONK"},
			QueueSize:           100,
		},
		Stream: StreamConfig{
			Backoff:         duration{time.Second},
			ConfirmationLag: 2,
		},
		Oracle: OracleConfig{
			RequestsPerSecond: 5,
			RetryMax:          3,
		},
		Router: RouterConfig{
			Endpoint:    "https://quote-api.jup.ag/v6",
			SlippageBps: 50,
			PriorityFee: 1000,
			GuardTTL:    duration{24 * time.Hour},
		},
		Storage: StorageConfig{
			TradeLogDir: "data",
		},
		Redis: RedisConfig{
			PoolSize:   10,
			MaxRetries: 3,
		},
		Kafka: KafkaConfig{
			Topic: "mev.decisions",
		},
		S3: S3Config{
			Region:         "us-east-1",
			ForcePathStyle: true,
		},
		Observability: ObservabilityConfig{
			MetricsAddr: ":9090",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks every section and returns all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Solana.RPCURL == "" {
		errs = append(errs, "solana: rpc_url must not be empty")
	}
	if c.Solana.WSURL == "" {
		errs = append(errs, "solana: ws_url must not be empty")
	}
	switch c.Solana.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		errs = append(errs, fmt.Sprintf("solana: unknown commitment %q", c.Solana.Commitment))
	}

	a := c.Agent
	if a.MinOpportunityScore < 0 || a.MinOpportunityScore > 1 {
		errs = append(errs, fmt.Sprintf("agent: min_opportunity_score must be in [0,1], got %v", a.MinOpportunityScore))
	}
	if a.MaxRiskLevel < 0 || a.MaxRiskLevel > 3 {
		errs = append(errs, fmt.Sprintf("agent: max_risk_level must be in [0,3], got %d", a.MaxRiskLevel))
	}
	if a.MinProfitThreshold < 0 {
		errs = append(errs, fmt.Sprintf("agent: min_profit_threshold must not be negative, got %v", a.MinProfitThreshold))
	}
	if a.MaxRiskThreshold < 1 || a.MaxRiskThreshold > 3 {
		errs = append(errs, fmt.Sprintf("agent: max_risk_threshold must be in [1,3], got %d", a.MaxRiskThreshold))
	}
	if a.QueueSize < 1 {
		errs = append(errs, "agent: queue_size must be >= 1")
	}

	if c.Stream.Backoff.Duration <= 0 {
		errs = append(errs, "stream: backoff must be positive")
	}
	if c.Stream.MaxRetries < 0 {
		errs = append(errs, "stream: max_retries must be >= 0")
	}
	if c.Stream.ConfirmationLag < 0 {
		errs = append(errs, "stream: confirmation_lag must be >= 0")
	}

	if c.Router.SlippageBps < 1 || c.Router.SlippageBps > 10000 {
		errs = append(errs, fmt.Sprintf("router: slippage_bps must be in [1,10000], got %d", c.Router.SlippageBps))
	}
	if c.Oracle.RetryMax < 0 {
		errs = append(errs, "oracle: retry_max must be >= 0")
	}

	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, "kafka: topic is required when brokers are set")
	}
	if c.S3.Bucket != "" && c.S3.Region == "" {
		errs = append(errs, "s3: region is required when bucket is set")
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Sprintf("log: unknown level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log: unknown format %q (valid: text, json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// StreamBackoff returns the reconnect wait.
func (c *Config) StreamBackoff() time.Duration { return c.Stream.Backoff.Duration }

// GuardTTL returns how long an executed decision id stays claimed.
func (c *Config) GuardTTL() time.Duration { return c.Router.GuardTTL.Duration }

// WalletFile returns the wallet path with a leading ~ expanded.
func (c *Config) WalletFile() string {
	return ExpandHome(c.Solana.WalletPath)
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// deriveWS maps an http(s) RPC URL to its ws(s) counterpart.
func deriveWS(rpcURL string) string {
	switch {
	case strings.HasPrefix(rpcURL, "https://"):
		return "wss://" + strings.TrimPrefix(rpcURL, "https://")
	case strings.HasPrefix(rpcURL, "http://"):
		return "ws://" + strings.TrimPrefix(rpcURL, "http://")
	}
	return ""
}
